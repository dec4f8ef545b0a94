package engine

// NanoCore opcodes. Instructions are 32-bit big-endian words with the
// opcode in bits 31:26. Three layouts share the remaining bits:
//
//	R-type: [25:21 rd][20:16 rs1][15:11 rs2]
//	I-type: [25:21 rd][20:16 rs1][15:0 imm16]
//	J-type: [25:0 imm26]
//
// Branches reuse the I-type layout with rs1 in the rd field and rs2 in
// the rs1 field. Vector instructions reuse the R-type layout with
// vector register indices.
const (
	opADD  = 0x00
	opSUB  = 0x01
	opMUL  = 0x02
	opMULH = 0x03
	opDIV  = 0x04
	opMOD  = 0x05
	opAND  = 0x06
	opOR   = 0x07
	opXOR  = 0x08
	opNOT  = 0x09
	opSHL  = 0x0A
	opSHR  = 0x0B
	opSAR  = 0x0C
	opROL  = 0x0D
	opROR  = 0x0E

	opLD = 0x0F
	opLW = 0x10
	opLH = 0x11
	opLB = 0x12
	opST = 0x13
	opSW = 0x14
	opSH = 0x15
	opSB = 0x16

	opBEQ  = 0x17
	opBNE  = 0x18
	opBLT  = 0x19
	opBGE  = 0x1A
	opBLTU = 0x1B
	opBGEU = 0x1C

	opJMP  = 0x1D
	opCALL = 0x1E
	opRET  = 0x1F

	opSYSCALL = 0x20
	opHALT    = 0x21
	opNOP     = 0x22

	opCPUID    = 0x23
	opRDCYCLE  = 0x24
	opRDPERF   = 0x25
	opPREFETCH = 0x26
	opCLFLUSH  = 0x27
	opFENCE    = 0x28

	opLR      = 0x29
	opSC      = 0x2A
	opAMOSWAP = 0x2B
	opAMOADD  = 0x2C
	opAMOAND  = 0x2D
	opAMOOR   = 0x2E
	opAMOXOR  = 0x2F

	opVADDF64    = 0x30
	opVSUBF64    = 0x31
	opVMULF64    = 0x32
	opVFMAF64    = 0x33
	opVLOAD      = 0x34
	opVSTORE     = 0x35
	opVBROADCAST = 0x36
)

// LinkRegister receives the return address on CALL.
const LinkRegister = 31
