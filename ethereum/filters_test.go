package ethereum

import "testing"

func abiAddress(last byte) []byte {
	word := make([]byte, 32)
	word[31] = last
	return word
}

func TestIsERC20TemplateCallTransfer(t *testing.T) {
	data := append([]byte{}, erc20TransferMethodID...)
	data = append(data, abiAddress(0x01)...)
	data = append(data, abiAddress(0x02)...)

	if !IsERC20TemplateCall(data) {
		t.Fatal("expected transfer template match")
	}
}

func TestIsERC20TemplateCallApprove(t *testing.T) {
	data := append([]byte{}, erc20ApproveMethodID...)
	data = append(data, abiAddress(0x01)...)
	data = append(data, abiAddress(0x02)...)

	if !IsERC20TemplateCall(data) {
		t.Fatal("expected approve template match")
	}
}

func TestIsERC20TemplateCallTransferFrom(t *testing.T) {
	data := append([]byte{}, erc20TransferFromMethodID...)
	data = append(data, abiAddress(0x01)...)
	data = append(data, abiAddress(0x02)...)
	data = append(data, abiAddress(0x03)...)

	if !IsERC20TemplateCall(data) {
		t.Fatal("expected transferFrom template match")
	}
}

func TestIsERC20TemplateCallWrongLength(t *testing.T) {
	data := append([]byte{}, erc20TransferMethodID...)
	data = append(data, abiAddress(0x01)...) // missing second word

	if IsERC20TemplateCall(data) {
		t.Fatal("expected mismatch for wrong length")
	}
}

func TestIsERC20TemplateCallNonZeroPadding(t *testing.T) {
	data := append([]byte{}, erc20TransferMethodID...)
	word := abiAddress(0x01)
	word[0] = 0xff // leading bytes not zero, not a right-aligned address
	data = append(data, word...)
	data = append(data, abiAddress(0x02)...)

	if IsERC20TemplateCall(data) {
		t.Fatal("expected mismatch for non-zero padding")
	}
}

func TestIsERC20TemplateCallUnknownSelector(t *testing.T) {
	data := []byte{0x00, 0x00, 0x00, 0x00, 0x00}
	if IsERC20TemplateCall(data) {
		t.Fatal("expected mismatch for unknown selector")
	}
}

func TestIsERC20TemplateCallTooShort(t *testing.T) {
	if IsERC20TemplateCall([]byte{0x01, 0x02}) {
		t.Fatal("expected mismatch for too-short data")
	}
}
