package hexconv

// Invalid marks bytes that are no hexadecimal digits.
const Invalid = 0xFF

// Halfbyte maps an ASCII character to the value of the hexadecimal
// digit it stands for, or Invalid.
var Halfbyte = func() (table [256]byte) {
	for i := range table {
		table[i] = Invalid
	}

	for c := byte('0'); c <= '9'; c++ {
		table[c] = c - '0'
	}

	for c := byte('a'); c <= 'f'; c++ {
		table[c] = c - 'a' + 10
	}

	for c := byte('A'); c <= 'F'; c++ {
		table[c] = c - 'A' + 10
	}

	return table
}()
