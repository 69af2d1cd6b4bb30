package rsp

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// vfileTable implements GDB's vFile packet family: a remote filesystem
// pass-through against the local filesystem this server runs on, scoped
// to integer handles GDB holds for the lifetime of one connection.
type vfileTable struct {
	mu      sync.Mutex
	next    int
	entries map[int]*os.File
}

func newVfileTable() *vfileTable {
	return &vfileTable{entries: make(map[int]*os.File)}
}

// dispatch handles one vFile:<op>:... packet, op already stripped of the
// "vFile:" prefix. Replies follow the "F<result>[,<errno>][;<data>]"
// convention; a failure is "F-1,<errno>".
func (v *vfileTable) dispatch(rest string) string {
	op, args, _ := strings.Cut(rest, ":")
	switch op {
	case "open":
		return v.open(args)
	case "pread":
		return v.pread(args)
	case "pwrite":
		return v.pwrite(args)
	case "close":
		return v.close(args)
	case "fstat":
		return v.fstat(args)
	case "unlink":
		return v.unlink(args)
	case "readlink":
		return v.readlink(args)
	default:
		return fErr(1) // EPERM: unsupported vFile operation
	}
}

func fOK(result int) string          { return fmt.Sprintf("F%x", result) }
func fOKData(result int, data []byte) string {
	return fmt.Sprintf("F%x;%s", result, data)
}
func fErr(errno int) string { return fmt.Sprintf("F-1,%x", errno) }

// gdbOpenFlags matches the O_* numbering GDB sends, which is the host's
// numbering on Linux — so no translation table is needed beyond picking
// the equivalent os.O_* constant for Go's OpenFile.
func gdbOpenFlags(raw int) int {
	flags := os.O_RDONLY
	switch raw & 3 {
	case 1:
		flags = os.O_WRONLY
	case 2:
		flags = os.O_RDWR
	}
	if raw&0o100 != 0 {
		flags |= os.O_CREATE
	}
	if raw&0o1000 != 0 {
		flags |= os.O_TRUNC
	}
	if raw&0o2000 != 0 {
		flags |= os.O_APPEND
	}
	if raw&0o200 != 0 {
		flags |= os.O_EXCL
	}
	return flags
}

func (v *vfileTable) open(args string) string {
	parts := strings.Split(args, ",")
	if len(parts) != 3 {
		return fErr(22) // EINVAL
	}
	pathHex, flagsStr, modeStr := parts[0], parts[1], parts[2]
	pathBytes, err := hex.DecodeString(pathHex)
	if err != nil {
		return fErr(22)
	}
	rawFlags, err1 := strconv.ParseInt(flagsStr, 16, 32)
	mode, err2 := strconv.ParseUint(modeStr, 16, 32)
	if err1 != nil || err2 != nil {
		return fErr(22)
	}

	f, err := os.OpenFile(string(pathBytes), gdbOpenFlags(int(rawFlags)), os.FileMode(mode))
	if err != nil {
		return fErr(errnoOf(err))
	}

	v.mu.Lock()
	fd := v.next
	v.next++
	v.entries[fd] = f
	v.mu.Unlock()
	return fOK(fd)
}

func (v *vfileTable) get(fdStr string) (*os.File, bool) {
	fd, err := strconv.Atoi(fdStr)
	if err != nil {
		return nil, false
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	f, ok := v.entries[fd]
	return f, ok
}

func (v *vfileTable) pread(args string) string {
	parts := strings.SplitN(args, ",", 3)
	if len(parts) != 3 {
		return fErr(22)
	}
	f, ok := v.get(parts[0])
	if !ok {
		return fErr(9) // EBADF
	}
	count, err1 := strconv.ParseUint(parts[1], 16, 32)
	offset, err2 := strconv.ParseInt(parts[2], 16, 64)
	if err1 != nil || err2 != nil {
		return fErr(22)
	}
	buf := make([]byte, count)
	n, err := f.ReadAt(buf, offset)
	if err != nil && n == 0 {
		return fErr(errnoOf(err))
	}
	return fOKData(n, buf[:n])
}

func (v *vfileTable) pwrite(args string) string {
	parts := strings.SplitN(args, ",", 3)
	if len(parts) != 3 {
		return fErr(22)
	}
	f, ok := v.get(parts[0])
	if !ok {
		return fErr(9)
	}
	offset, err := strconv.ParseInt(parts[1], 16, 64)
	if err != nil {
		return fErr(22)
	}
	n, err := f.WriteAt([]byte(parts[2]), offset)
	if err != nil {
		return fErr(errnoOf(err))
	}
	return fOK(n)
}

func (v *vfileTable) close(args string) string {
	fd, err := strconv.Atoi(args)
	if err != nil {
		return fErr(22)
	}
	v.mu.Lock()
	f, ok := v.entries[fd]
	delete(v.entries, fd)
	v.mu.Unlock()
	if !ok {
		return fErr(9)
	}
	if err := f.Close(); err != nil {
		return fErr(errnoOf(err))
	}
	return fOK(0)
}

func (v *vfileTable) fstat(args string) string {
	f, ok := v.get(args)
	if !ok {
		return fErr(9)
	}
	info, err := f.Stat()
	if err != nil {
		return fErr(errnoOf(err))
	}
	// A minimal "struct stat" GDB only reads st_size and st_mode from.
	st := fmt.Sprintf("st_mode:%x;st_size:%x;", uint32(info.Mode()), info.Size())
	return fOKData(len(st), []byte(st))
}

func (v *vfileTable) unlink(pathHex string) string {
	pathBytes, err := hex.DecodeString(pathHex)
	if err != nil {
		return fErr(22)
	}
	if err := os.Remove(string(pathBytes)); err != nil {
		return fErr(errnoOf(err))
	}
	return fOK(0)
}

func (v *vfileTable) readlink(pathHex string) string {
	pathBytes, err := hex.DecodeString(pathHex)
	if err != nil {
		return fErr(22)
	}
	target, err := os.Readlink(string(pathBytes))
	if err != nil {
		return fErr(errnoOf(err))
	}
	return fOKData(len(target), []byte(target))
}
