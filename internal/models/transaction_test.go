package models

import (
	"errors"
	"reflect"
	"testing"
)

func TestTransaction_Participants(t *testing.T) {
	tests := []struct {
		name string
		tx   Transaction
		want []string
	}{
		{
			name: "split with only",
			tx:   Transaction{SplitWith: []string{"Bob", "Alice"}},
			want: []string{"Bob", "Alice"},
		},
		{
			name: "amount keys appended sorted",
			tx: Transaction{
				SplitWith:    []string{"Bob"},
				SplitAmounts: map[string]float64{"Zoe": 5, "Bob": 10, "Carl": 3},
			},
			want: []string{"Bob", "Carl", "Zoe"},
		},
		{
			name: "duplicates and blanks dropped",
			tx:   Transaction{SplitWith: []string{"Bob", "", "Bob"}},
			want: []string{"Bob"},
		},
		{
			name: "nothing",
			tx:   Transaction{},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.tx.Participants()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Participants() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTransaction_Validate(t *testing.T) {
	valid := func() Transaction {
		return Transaction{Merchant: "Grab", Amount: 12.5, Date: "2026-10-01", Currency: "SGD"}
	}

	tests := []struct {
		name    string
		mutate  func(*Transaction)
		wantErr error
	}{
		{name: "valid", mutate: func(*Transaction) {}},
		{name: "blank merchant", mutate: func(tx *Transaction) { tx.Merchant = "  " }, wantErr: ErrEmptyMerchant},
		{name: "zero amount", mutate: func(tx *Transaction) { tx.Amount = 0 }, wantErr: ErrInvalidAmount},
		{name: "bad date", mutate: func(tx *Transaction) { tx.Date = "01/10/2026" }, wantErr: ErrInvalidDate},
		{name: "bad currency", mutate: func(tx *Transaction) { tx.Currency = "SG" }, wantErr: ErrInvalidCurrency},
		{name: "split without partners", mutate: func(tx *Transaction) { tx.IsSplit = true }, wantErr: ErrNoSplitPartners},
		{
			name:   "split with amounts only",
			mutate: func(tx *Transaction) { tx.IsSplit = true; tx.SplitAmounts = map[string]float64{"Sam": 4} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := valid()
			tt.mutate(&tx)
			err := tx.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
