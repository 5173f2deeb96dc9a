package chain

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestFakeAdapter_FilterLogsMatchesAddressRangeAndTopic(t *testing.T) {
	f := NewFakeAdapter()
	tokenA := common.HexToAddress("0x1111111111111111111111111111111111111111")
	tokenB := common.HexToAddress("0x2222222222222222222222222222222222222222")
	transferTopic := common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")
	otherTopic := common.HexToHash("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	f.Logs = []Log{
		{Address: tokenA, BlockNumber: 5, Topics: []common.Hash{transferTopic}},
		{Address: tokenA, BlockNumber: 50, Topics: []common.Hash{transferTopic}}, // out of range
		{Address: tokenB, BlockNumber: 5, Topics: []common.Hash{transferTopic}},  // wrong address
		{Address: tokenA, BlockNumber: 6, Topics: []common.Hash{otherTopic}},     // wrong topic
	}

	got, err := f.FilterLogs(context.Background(), FilterQuery{
		Address:   tokenA,
		FromBlock: 1,
		ToBlock:   10,
		Topics:    [][]common.Hash{{transferTopic}},
	})
	if err != nil {
		t.Fatalf("FilterLogs: %v", err)
	}
	if len(got) != 1 || got[0].BlockNumber != 5 {
		t.Fatalf("FilterLogs = %+v, want exactly the block-5 tokenA transfer", got)
	}
}

func TestFakeAdapter_NextErrFiresOnceThenClears(t *testing.T) {
	f := NewFakeAdapter()
	f.NextErr = context.DeadlineExceeded

	if _, err := f.HeadBlockNumber(context.Background()); err == nil {
		t.Fatalf("expected injected error")
	}
	if _, err := f.HeadBlockNumber(context.Background()); err != nil {
		t.Fatalf("expected error to clear after first call, got %v", err)
	}
}
