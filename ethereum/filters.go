package ethereum

import "bytes"

// ERC-20 call templates (§4.4): a transaction whose data matches one of these shapes is
// protocol-standard — do not store. Grounded on
// original_source/ethereum_parser.py's check_if_template_contract_call.

var (
	erc20TransferMethodID     = []byte{0xa9, 0x05, 0x9c, 0xbb}
	erc20ApproveMethodID      = []byte{0x09, 0x5e, 0xa7, 0xb3}
	erc20TransferFromMethodID = []byte{0x23, 0xb8, 0x72, 0xdd}

	leading12ZeroBytes = make([]byte, 12)
)

// IsERC20TemplateCall reports whether tx data is a canonical transfer/approve/transferFrom call:
// the 4-byte method selector followed by ABI-encoded address arguments whose leading 12 bytes
// are zero (addresses are right-aligned in a 32-byte word).
func IsERC20TemplateCall(data []byte) bool {
	if len(data) < 5 {
		return false
	}

	selector := data[0:4]

	switch {
	case bytes.Equal(selector, erc20TransferMethodID), bytes.Equal(selector, erc20ApproveMethodID):
		if len(data) != 68 {
			return false
		}
		return bytes.Equal(data[4:16], leading12ZeroBytes)

	case bytes.Equal(selector, erc20TransferFromMethodID):
		if len(data) != 100 {
			return false
		}
		return bytes.Equal(data[4:16], leading12ZeroBytes) && bytes.Equal(data[36:48], leading12ZeroBytes)
	}

	return false
}
