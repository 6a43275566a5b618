package main

import (
	"testing"

	"github.com/tokenized/payloadminer/pipeline"

	"github.com/btcsuite/btcd/chaincfg"
)

func TestBitcoinParams(t *testing.T) {
	tests := []struct {
		chain pipeline.Chain
		want  *chaincfg.Params
	}{
		{pipeline.BitcoinMainnet, &chaincfg.MainNetParams},
		{pipeline.BitcoinTestnet3, &chaincfg.TestNet3Params},
		{pipeline.BitcoinRegtest, &chaincfg.RegressionNetParams},
	}
	for _, test := range tests {
		if got := bitcoinParams(test.chain); got != test.want {
			t.Fatalf("bitcoinParams(%s) = %v, want %v", test.chain, got, test.want)
		}
	}
}

func TestExtractorForSelectsByChainFamily(t *testing.T) {
	tests := []struct {
		name  string
		chain pipeline.Chain
	}{
		{"bitcoin", pipeline.BitcoinMainnet},
		{"monero", pipeline.MoneroMainnet},
		{"ethereum", pipeline.EthereumMainnet},
	}
	for _, test := range tests {
		extract, err := extractorFor(test.chain, "/tmp/chaindata")
		if err != nil {
			t.Fatalf("%s: unexpected error: %s", test.name, err)
		}
		if extract == nil {
			t.Fatalf("%s: expected a non-nil extract function", test.name)
		}
	}
}

func TestExtractorForUnknownChain(t *testing.T) {
	if _, err := extractorFor(pipeline.Chain("bogus"), "/tmp/chaindata"); err == nil {
		t.Fatal("expected an error for an unrecognized blockchain selector")
	}
}
