package memory

import "github.com/mbbscore/emucore/internal/x86asm"

// decodeSegment performs the linear decode add_segment triggers for a code
// segment: starting at IP 0, decode one instruction, advance by its
// length, repeat until the buffer is exhausted. Misaligned decodes (a
// truncated or undefined instruction mid-stream, typically from embedded
// data) stop the linear pass at that IP; recompile(seg, ip) is how a
// caller repairs an individual entry later.
func decodeSegment(data []byte) map[uint16]x86asm.Instruction {
	cache := make(map[uint16]x86asm.Instruction)
	ip := uint16(0)
	for int(ip) < len(data) {
		inst, err := x86asm.Decode(data, ip)
		if err != nil {
			break
		}
		cache[ip] = inst
		if inst.Length == 0 {
			break
		}
		ip += inst.Length
	}
	return cache
}

// recompileAt decodes up to 6 bytes starting at ip and rewrites the cache
// entry, used when linear decoding landed on a misaligned IP. An
// instruction whose encoding is longer than 6 bytes (possible with
// operand/address-size prefixes) fails here as truncated.
func recompileAt(cache map[uint16]x86asm.Instruction, data []byte, ip uint16) error {
	end := int(ip) + 6
	if end > len(data) {
		end = len(data)
	}
	inst, err := x86asm.Decode(data[:end], ip)
	if err != nil {
		return err
	}
	cache[ip] = inst
	return nil
}
