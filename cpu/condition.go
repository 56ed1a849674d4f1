package cpu

import "github.com/mbbscore/emucore/internal/x86asm"

// condTrue evaluates a Jcc condition code against the current flags.
func (c *CPU) condTrue(cond x86asm.CondCode) bool {
	switch cond {
	case 0x0: // O
		return c.GetFlag(FlagOF)
	case 0x1: // NO
		return !c.GetFlag(FlagOF)
	case 0x2: // B/C/NAE
		return c.GetFlag(FlagCF)
	case 0x3: // NB/NC/AE
		return !c.GetFlag(FlagCF)
	case 0x4: // E/Z
		return c.GetFlag(FlagZF)
	case 0x5: // NE/NZ
		return !c.GetFlag(FlagZF)
	case 0x6: // BE/NA
		return c.GetFlag(FlagCF) || c.GetFlag(FlagZF)
	case 0x7: // NBE/A
		return !c.GetFlag(FlagCF) && !c.GetFlag(FlagZF)
	case 0x8: // S
		return c.GetFlag(FlagSF)
	case 0x9: // NS
		return !c.GetFlag(FlagSF)
	case 0xA: // P/PE
		return c.GetFlag(FlagPF)
	case 0xB: // NP/PO
		return !c.GetFlag(FlagPF)
	case 0xC: // L/NGE
		return c.GetFlag(FlagSF) != c.GetFlag(FlagOF)
	case 0xD: // NL/GE
		return c.GetFlag(FlagSF) == c.GetFlag(FlagOF)
	case 0xE: // LE/NG
		return c.GetFlag(FlagZF) || (c.GetFlag(FlagSF) != c.GetFlag(FlagOF))
	default: // NLE/G
		return !c.GetFlag(FlagZF) && (c.GetFlag(FlagSF) == c.GetFlag(FlagOF))
	}
}
