package eligibility

// Volume returns the blood volume in millilitres drawn by a donation type.
// Component donations do not count toward the annual cap.
func Volume(t DonationType) int {
	switch t {
	case WholeBlood400:
		return 400
	case WholeBlood200:
		return 200
	default:
		return 0
	}
}
