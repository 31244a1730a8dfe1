package entities

import (
	"errors"
	"math/big"
	"time"
)

// DrawResult is the single committed outcome of a raffle draw
type DrawResult struct {
	ID             int64     `db:"id"`
	RaffleID       int64     `db:"raffle_id"`
	WinningEntryID int64     `db:"winning_entry_id"`
	WinningCode    int64     `db:"winning_code"`
	WinnerUserID   int64     `db:"winner_user_id"`
	WinningIndex   int64     `db:"winning_index"`
	TotalEntries   int64     `db:"total_entries"`
	TimestampSum   string    `db:"timestamp_sum"`
	CreatedAt      time.Time `db:"created_at"`
}

// DrawSelection is the winner picked from an ordered entry list
type DrawSelection struct {
	Entry        *RaffleEntry
	Index        int64
	TotalEntries int64
	TimestampSum *big.Int
}

// ToResult converts the selection into a result row for raffleID
func (s *DrawSelection) ToResult(raffleID int64) *DrawResult {
	return &DrawResult{
		RaffleID:       raffleID,
		WinningEntryID: s.Entry.ID,
		WinningCode:    s.Entry.ParticipationCode,
		WinnerUserID:   s.Entry.UserID,
		WinningIndex:   s.Index,
		TotalEntries:   s.TotalEntries,
		TimestampSum:   s.TimestampSum.String(),
	}
}

// EntryTimestamp is the epoch value an entry contributes to the draw, in milliseconds
func EntryTimestamp(entry *RaffleEntry) int64 {
	return entry.CreatedAt.UnixMilli()
}

// WinningIndex sums the timestamps and reduces the sum modulo their count.
// The sum is kept arbitrary-precision so large raffles cannot overflow.
func WinningIndex(timestamps []int64) (int64, *big.Int, error) {
	if len(timestamps) == 0 {
		return 0, nil, errors.New("cannot draw from zero entries")
	}

	sum := new(big.Int)
	for _, ts := range timestamps {
		sum.Add(sum, big.NewInt(ts))
	}

	index := new(big.Int).Mod(sum, big.NewInt(int64(len(timestamps))))
	return index.Int64(), sum, nil
}

// SelectWinner applies the timestamp-sum rule to entries, which must already be
// ordered by creation time (ties by id).
func SelectWinner(entries []*RaffleEntry) (*DrawSelection, error) {
	timestamps := make([]int64, len(entries))
	for i, entry := range entries {
		timestamps[i] = EntryTimestamp(entry)
	}

	index, sum, err := WinningIndex(timestamps)
	if err != nil {
		return nil, err
	}

	return &DrawSelection{
		Entry:        entries[index],
		Index:        index,
		TotalEntries: int64(len(entries)),
		TimestampSum: sum,
	}, nil
}
