package farm

import "strings"

type stateDistricts struct {
	state     string
	districts []string
}

var indianStates = []stateDistricts{
	{"Andhra Pradesh", []string{"Anantapur", "Chittoor", "East Godavari", "Guntur", "Krishna"}},
	{"Bihar", []string{"Araria", "Begusarai", "Bhagalpur", "Gaya", "Muzaffarpur", "Patna"}},
	{"Gujarat", []string{"Ahmedabad", "Amreli", "Anand", "Bharuch", "Bhavnagar", "Kutch", "Rajkot", "Surat"}},
	{"Haryana", []string{"Ambala", "Bhiwani", "Faridabad", "Gurugram", "Hisar", "Panipat", "Rohtak"}},
	{"Karnataka", []string{"Bagalkot", "Ballari", "Belagavi", "Bengaluru", "Bidar", "Dharwad", "Mysuru"}},
	{"Maharashtra", []string{"Ahmednagar", "Akola", "Amravati", "Aurangabad", "Beed", "Kolhapur", "Mumbai", "Nagpur", "Nashik", "Pune"}},
	{"Punjab", []string{"Amritsar", "Bathinda", "Faridkot", "Firozpur", "Ludhiana", "Patiala"}},
	{"Rajasthan", []string{"Ajmer", "Alwar", "Banswara", "Baran", "Barmer", "Bikaner", "Jaipur", "Jodhpur"}},
	{"Tamil Nadu", []string{"Chennai", "Coimbatore", "Cuddalore", "Dharmapuri", "Erode", "Madurai", "Salem"}},
	{"Uttar Pradesh", []string{"Agra", "Aligarh", "Allahabad", "Ambedkar Nagar", "Bareilly", "Ghaziabad", "Kanpur", "Lucknow", "Varanasi"}},
	{"West Bengal", []string{"Alipurduar", "Bankura", "Birbhum", "Cooch Behar", "Darjeeling", "Hooghly", "Howrah", "Kolkata", "Nadia", "Purulia"}},
}

// States returns the supported states in display order.
func States() []string {
	out := make([]string, 0, len(indianStates))
	for _, s := range indianStates {
		out = append(out, s.state)
	}
	return out
}

// Districts returns a copy of the district list for state, or nil for an unknown state.
func Districts(state string) []string {
	for _, s := range indianStates {
		if s.state == state {
			return append([]string(nil), s.districts...)
		}
	}
	return nil
}

func KnownState(state string) bool {
	return Districts(state) != nil
}

// HasDistrict reports whether district is listed for state (exact match).
func HasDistrict(state, district string) bool {
	for _, d := range Districts(state) {
		if d == district {
			return true
		}
	}
	return false
}

// CanonicalState maps a case-insensitive state name to its table spelling.
func CanonicalState(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, s := range indianStates {
		if strings.EqualFold(s.state, name) {
			return s.state, true
		}
	}
	return "", false
}

// CanonicalDistrict maps a case-insensitive district name to its table spelling within state.
func CanonicalDistrict(state, name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, d := range Districts(state) {
		if strings.EqualFold(d, name) {
			return d, true
		}
	}
	return "", false
}

// SuggestDistricts filters the districts of state by a case-insensitive substring of query.
// An unknown or empty state yields no suggestions; an empty query yields the whole list.
func SuggestDistricts(state, query string) []string {
	q := strings.ToLower(query)
	var out []string
	for _, d := range Districts(state) {
		if strings.Contains(strings.ToLower(d), q) {
			out = append(out, d)
		}
	}
	return out
}
