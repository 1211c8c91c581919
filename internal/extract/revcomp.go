package extract

// ReverseComplement returns the reverse complement of a DNA sequence in a
// new slice. Case is preserved; bases other than A, C, G and T (IUPAC
// ambiguity codes, N, gaps) are copied unchanged.
func ReverseComplement(seq []byte) []byte {
	return appendReverseComplement(make([]byte, 0, len(seq)), seq)
}

// appendReverseComplement appends the reverse complement of seq to dst.
func appendReverseComplement(dst, seq []byte) []byte {
	for i := len(seq) - 1; i >= 0; i-- {
		dst = append(dst, Complement(seq[i]))
	}
	return dst
}

// Complement returns the Watson-Crick complement of a single base.
func Complement(base byte) byte {
	switch base {
	case 'A':
		return 'T'
	case 'T':
		return 'A'
	case 'G':
		return 'C'
	case 'C':
		return 'G'
	case 'a':
		return 't'
	case 't':
		return 'a'
	case 'g':
		return 'c'
	case 'c':
		return 'g'
	default:
		return base
	}
}
