package ethereum

import (
	"context"
	"encoding/hex"
	"path/filepath"

	"github.com/tokenized/payloadminer/pipeline"
)

// Extractor walks Ethereum blocks in height order, preferring the frozen ancient store and
// falling back to the LevelDB hot tail once the freezer is exhausted (§4.3 Ethereum Extractor).
type Extractor struct {
	ChaindataDir string // .../geth/chaindata
}

// Extract implements the extractor operation named in §4.3: extract(store) -> ().
func (e *Extractor) Extract(ctx context.Context, bus *pipeline.Bus) error {
	ancientDir := filepath.Join(e.ChaindataDir, "ancient")

	headers, err := OpenFreezerTable(ancientDir, "headers", true)
	if err != nil {
		return err
	}
	bodies, err := OpenFreezerTable(ancientDir, "bodies", true)
	if err != nil {
		return err
	}

	hotTail, err := OpenHotTail(e.ChaindataDir)
	if err != nil {
		return err
	}
	defer hotTail.Close()

	for height := uint64(1); ; height++ {
		body, header, ok := e.blockAt(height, bodies, headers, hotTail)
		if !ok {
			break
		}

		if err := e.emitBlock(ctx, bus, height, body, header); err != nil {
			return err
		}
	}

	return nil
}

func (e *Extractor) blockAt(height uint64, bodies, headers *FreezerTable, hotTail *HotTail) (*Body, *Header, bool) {
	if bodies.Has(height) && headers.Has(height) {
		rawBody, err := bodies.Retrieve(height)
		if err != nil {
			return nil, nil, false
		}
		body, err := DecodeBody(rawBody)
		if err != nil {
			return nil, nil, false
		}

		rawHeader, err := headers.Retrieve(height)
		if err != nil {
			return nil, nil, false
		}
		header, err := DecodeHeader(rawHeader)
		if err != nil {
			return nil, nil, false
		}

		return body, header, true
	}

	hash, err := hotTail.HashByHeight(height)
	if err != nil || hash == nil {
		return nil, nil, false
	}

	body, err := hotTail.BodyByHeight(height)
	if err != nil || body == nil {
		return nil, nil, false
	}

	header, err := hotTail.HeaderByHeight(height)
	if err != nil || header == nil {
		return nil, nil, false
	}

	return body, header, true
}

func (e *Extractor) emitBlock(ctx context.Context, bus *pipeline.Bus, height uint64, body *Body, header *Header) error {
	for i := range body.Transactions {
		tx := &body.Transactions[i]
		if len(tx.Data) < 2 {
			continue
		}
		if IsERC20TemplateCall(tx.Data) {
			continue
		}

		payload := pipeline.ExtractorPayload{
			TxID:        hex.EncodeToString(tx.Hash()),
			Kind:        pipeline.KindTxData,
			ExtraIndex:  0,
			BlockHeight: int64(height),
			Data:        tx.Data,
		}
		if err := bus.Send(ctx, payload); err != nil {
			return err
		}
	}

	if len(header.Extra) > 0 {
		payload := pipeline.ExtractorPayload{
			TxID:        hex.EncodeToString(header.TxHash),
			Kind:        pipeline.KindTxData,
			ExtraIndex:  0,
			BlockHeight: int64(height),
			Data:        header.Extra,
		}
		if err := bus.Send(ctx, payload); err != nil {
			return err
		}
	}

	return nil
}
