package modbus

// Normalize converts a configured tag address — which may be written as an
// absolute Modbus reference (40001.., 30001.., 10001..) or already as a
// 0-based offset — into a 0-based register/coil offset. The operation is
// idempotent: an already-normalized address passes through unchanged.
func Normalize(address int) int {
	switch {
	case address >= 40001 && address <= 49999:
		return address - 40001
	case address >= 30001 && address <= 39999:
		return address - 30001
	case address >= 10001 && address <= 19999:
		return address - 10001
	default:
		return address
	}
}
