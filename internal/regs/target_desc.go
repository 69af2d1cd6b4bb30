package regs

import _ "embed"

// TargetDescXML is the amd64-linux GDB target description served verbatim
// by qXfer:features:read:target.xml. GDB uses it to learn the register set
// and layout advertised by this stub instead of assuming a fixed one.
//go:embed target-desc.xml
var TargetDescXML []byte
