package newtfs

// POSIX file-type and permission bits, the subset of the teacher repo's
// flags.go this filesystem actually has a use for: reporting a conventional
// st_mode value from Getattr/Lookup. There's no real permission model here
// (see SUPPLEMENTED FEATURES in SPEC_FULL.md) — directories and regular
// files each get a fixed, hardcoded permission mask.
const (
	modeIXOTH = 1 << iota
	modeIWOTH
	modeIROTH
	modeIXGRP
	modeIWGRP
	modeIRGRP
	modeIXUSR
	modeIWUSR
	modeIRUSR
)

const (
	modeIFDIR = 0040000
	modeIFREG = 0100000
)

const (
	defaultDirPerm  = modeIRUSR | modeIWUSR | modeIXUSR | modeIRGRP | modeIXGRP | modeIROTH | modeIXOTH
	defaultFilePerm = modeIRUSR | modeIWUSR | modeIRGRP | modeIROTH
)

// Mode reports a conventional POSIX st_mode value for stat's FType: the file
// type bits plus a fixed, non-enforced permission mask.
func (s FileStat) Mode() uint32 {
	if s.FType == Directory {
		return modeIFDIR | defaultDirPerm
	}
	return modeIFREG | defaultFilePerm
}
