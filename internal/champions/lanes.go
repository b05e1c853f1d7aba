package champions

import "strings"

type Role string

const (
	RoleTop     Role = "top"
	RoleJungle  Role = "jungle"
	RoleMid     Role = "mid"
	RoleADC     Role = "adc"
	RoleSupport Role = "supp"
)

// Roles is the fixed lane order. Index i is the conventional slot of the
// i-th player in a livestats roster.
var Roles = [5]Role{RoleTop, RoleJungle, RoleMid, RoleADC, RoleSupport}

// Index returns the position of r in Roles, or -1.
func (r Role) Index() int {
	for i, role := range Roles {
		if role == r {
			return i
		}
	}
	return -1
}

// ParseRole accepts the spellings used by community affinity sheets.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "top":
		return RoleTop, true
	case "jungle", "jgl", "jg", "jng":
		return RoleJungle, true
	case "mid", "middle":
		return RoleMid, true
	case "adc", "bot", "bottom":
		return RoleADC, true
	case "supp", "sup", "support", "utility":
		return RoleSupport, true
	}
	return "", false
}

// staticRoles is the fallback primary lane per champion key, used when the
// affinity table has no entry.
var staticRoles = map[int]Role{
	1: RoleMid, 2: RoleTop, 3: RoleMid, 4: RoleMid, 5: RoleJungle,
	6: RoleTop, 7: RoleMid, 8: RoleMid, 9: RoleJungle, 10: RoleTop,
	11: RoleJungle, 12: RoleSupport, 13: RoleMid, 14: RoleTop, 15: RoleADC,
	16: RoleSupport, 17: RoleTop, 18: RoleADC, 19: RoleJungle, 20: RoleJungle,
	21: RoleADC, 22: RoleADC, 23: RoleTop, 24: RoleTop, 25: RoleSupport,
	26: RoleSupport, 27: RoleTop, 28: RoleJungle, 29: RoleADC, 30: RoleJungle,
	31: RoleTop, 32: RoleJungle, 33: RoleJungle, 34: RoleMid, 35: RoleJungle,
	36: RoleTop, 37: RoleSupport, 38: RoleMid, 39: RoleTop, 40: RoleSupport,
	41: RoleTop, 42: RoleMid, 43: RoleSupport, 44: RoleSupport, 45: RoleMid,
	48: RoleJungle, 50: RoleSupport, 51: RoleADC, 53: RoleSupport, 54: RoleTop,
	55: RoleMid, 56: RoleJungle, 57: RoleSupport, 58: RoleTop, 59: RoleJungle,
	60: RoleJungle, 61: RoleMid, 62: RoleJungle, 63: RoleSupport, 64: RoleJungle,
	67: RoleADC, 68: RoleTop, 69: RoleMid, 72: RoleJungle, 74: RoleMid,
	75: RoleTop, 76: RoleJungle, 77: RoleJungle, 78: RoleTop, 79: RoleJungle,
	80: RoleSupport, 81: RoleADC, 82: RoleTop, 83: RoleTop, 84: RoleMid,
	85: RoleTop, 86: RoleTop, 89: RoleSupport, 90: RoleMid, 91: RoleMid,
	92: RoleTop, 96: RoleADC, 98: RoleTop, 99: RoleSupport, 101: RoleSupport,
	102: RoleJungle, 103: RoleMid, 104: RoleJungle, 105: RoleMid, 106: RoleJungle,
	107: RoleJungle, 110: RoleADC, 111: RoleSupport, 112: RoleMid, 113: RoleJungle,
	114: RoleTop, 115: RoleADC, 117: RoleSupport, 119: RoleADC, 120: RoleJungle,
	121: RoleJungle, 122: RoleTop, 126: RoleTop, 127: RoleMid, 131: RoleJungle,
	133: RoleTop, 134: RoleMid, 136: RoleMid, 141: RoleJungle, 142: RoleMid,
	143: RoleSupport, 145: RoleADC, 147: RoleSupport, 150: RoleTop, 154: RoleJungle,
	157: RoleMid, 161: RoleSupport, 163: RoleMid, 164: RoleTop, 166: RoleMid,
	200: RoleJungle, 201: RoleSupport, 202: RoleADC, 203: RoleJungle, 221: RoleADC,
	222: RoleADC, 223: RoleSupport, 233: RoleJungle, 234: RoleJungle, 235: RoleSupport,
	236: RoleADC, 238: RoleMid, 240: RoleTop, 245: RoleMid, 246: RoleMid,
	254: RoleJungle, 266: RoleTop, 267: RoleSupport, 268: RoleMid, 350: RoleSupport,
	360: RoleADC, 412: RoleSupport, 420: RoleTop, 421: RoleJungle, 427: RoleJungle,
	429: RoleADC, 432: RoleSupport, 497: RoleSupport, 498: RoleADC, 516: RoleTop,
	517: RoleMid, 518: RoleMid, 523: RoleADC, 526: RoleSupport, 555: RoleSupport,
	711: RoleMid, 777: RoleMid, 799: RoleTop, 800: RoleMid, 875: RoleTop,
	876: RoleJungle, 887: RoleTop, 888: RoleSupport, 893: RoleMid, 895: RoleADC,
	897: RoleTop, 901: RoleADC, 902: RoleSupport, 910: RoleMid, 950: RoleMid,
}
