package emu

// Graphics command opcodes. Primitive draws encode the vertex format in the
// low 3 bits.
const (
	opNop              = 0x00
	opLoadCPReg        = 0x08
	opLoadXFReg        = 0x10
	opLoadIndxA        = 0x20
	opLoadIndxB        = 0x28
	opLoadIndxC        = 0x30
	opLoadIndxD        = 0x38
	opCallDisplayList  = 0x40
	opUnknownMetrics   = 0x44
	opInvalidateVertex = 0x48
	opLoadBPReg        = 0x61

	opPrimitiveStart = 0x80
	opPrimitiveEnd   = 0xBF
)

var opNames = [256]string{
	opNop:              "NOP",
	opLoadCPReg:        "LOAD_CP_REG",
	opLoadXFReg:        "LOAD_XF_REG",
	opLoadIndxA:        "LOAD_INDX_A",
	opLoadIndxB:        "LOAD_INDX_B",
	opLoadIndxC:        "LOAD_INDX_C",
	opLoadIndxD:        "LOAD_INDX_D",
	opCallDisplayList:  "CALL_DL",
	opUnknownMetrics:   "UNKNOWN_METRICS",
	opInvalidateVertex: "INVL_VC",
	opLoadBPReg:        "LOAD_BP_REG",
}

func isKnownOpcode(op uint8) bool {
	return opNames[op] != "" || (op >= opPrimitiveStart && op <= opPrimitiveEnd)
}
