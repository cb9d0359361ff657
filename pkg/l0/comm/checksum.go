package comm

// XorChecksum is the XOR-fold of data seeded with 0xFF. It protects
// frames on the link.
func XorChecksum(data []byte) byte {
	checksum := byte(0xff)
	for _, b := range data {
		checksum ^= b
	}
	return checksum
}

// SumChecksum is the byte sum of data modulo 256.
func SumChecksum(data []byte) byte {
	var checksum byte
	for _, b := range data {
		checksum += b
	}
	return checksum
}

// CapabilityHash is the 2-byte key identifying a named operation
// for remote invocation.
func CapabilityHash(name string) [2]byte {
	encoded := []byte(name)
	return [2]byte{XorChecksum(encoded), SumChecksum(encoded)}
}

// IdentityID derives the 1-byte identity of a hub from its name, used
// to address entries in broadcast beacons.
func IdentityID(name string) byte {
	return SumChecksum([]byte(name))
}
