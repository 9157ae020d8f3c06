package statement

import "strconv"

// bai2CreditCodes lists type codes that are credits regardless of range.
// Summary codes below 100 are not covered by the detail ranges.
var bai2CreditCodes = map[string]bool{
	"010": true, "015": true, "016": true, "018": true, "100": true,
	"108": true, "115": true, "116": true, "118": true, "142": true,
	"165": true, "169": true, "195": true, "200": true, "201": true,
	"202": true, "206": true, "207": true, "208": true, "212": true,
	"213": true, "214": true, "215": true, "216": true, "218": true,
	"221": true, "222": true, "224": true, "226": true, "227": true,
	"229": true, "230": true, "231": true, "232": true, "233": true,
	"234": true, "235": true, "236": true, "237": true, "238": true,
	"239": true, "240": true, "241": true, "242": true, "243": true,
}

var bai2Descriptions = map[string]string{
	"010": "Credit - Unknown",
	"015": "Lockbox Deposit",
	"016": "Item in Lockbox Deposit",
	"108": "Wire Transfer Credit",
	"115": "Incoming Money Transfer",
	"116": "ACH Settlement",
	"118": "ACH Credit Received",
	"142": "Book Transfer Credit",
	"165": "Preauthorized ACH Credit",
	"195": "Check Deposit",
	"400": "Debit - Unknown",
	"408": "Wire Transfer Debit",
	"416": "ACH Debit Settlement",
	"421": "ACH Debit Return",
	"455": "Outgoing Money Transfer",
	"495": "Check Paid",
	"560": "Account Analysis Fee",
	"561": "Account Maintenance Fee",
	"566": "Wire Transfer Fee",
	"890": "Miscellaneous Fee",
}

// isBAI2Credit classifies a BAI2 type code. The explicit list wins; otherwise
// the standard ranges apply: 100-399 credit, 400-699 debit, and within the
// bank-defined block 900-959 credit, 960-999 debit. Anything else is a debit.
func isBAI2Credit(code string) bool {
	if bai2CreditCodes[code] {
		return true
	}
	n, err := strconv.Atoi(code)
	if err != nil || len(code) != 3 {
		return false
	}
	switch {
	case n >= 100 && n <= 399:
		return true
	case n >= 900 && n <= 959:
		return true
	default:
		return false
	}
}

// bai2Description returns the human description for a type code.
func bai2Description(code string) string {
	if d, ok := bai2Descriptions[code]; ok {
		return d
	}
	return "Transaction Code: " + code
}
