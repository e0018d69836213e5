package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"testing"

	"ecash-nwc-gateway/internal/core/domain"
	"ecash-nwc-gateway/internal/ecash"
	"ecash-nwc-gateway/internal/ecash/bdhke"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
)

const (
	testMintURL  = "https://mint.test"
	testKeysetID = "00ffd48b8f5ecf80"
)

var errMintDown = errors.New("mint unreachable")

// fakeMint is an in-process Cashu mint that really signs blinded outputs,
// so proofs it issues can be spent back to it.
type fakeMint struct {
	mu   sync.Mutex
	priv map[uint64]*btcec.PrivateKey

	mintQuotes map[string]*fakeMintQuote
	nextQuote  int

	meltQuote    *domain.MeltQuote
	meltPaid     bool
	meltErr      error
	meltPreimage string
	// feeSpent is the part of the fee reserve the mint keeps on a paid melt.
	feeSpent uint64

	swapErr error
	spent   map[string]bool

	swapCalls    []fakeSwap
	meltInputs   [][]domain.Proof
	blankOutputs []int
	statusCalls  int
	mintCalls    int
}

type fakeMintQuote struct {
	request string
	amount  uint64
	paid    bool
	issued  bool
}

type fakeSwap struct {
	inputs  int
	outputs []uint64
}

func newFakeMint(t *testing.T) *fakeMint {
	t.Helper()
	m := &fakeMint{
		priv:       make(map[uint64]*btcec.PrivateKey),
		mintQuotes: make(map[string]*fakeMintQuote),
		spent:      make(map[string]bool),
	}
	for i := 0; i < 16; i++ {
		k, err := btcec.NewPrivateKey()
		require.NoError(t, err)
		m.priv[uint64(1)<<i] = k
	}
	return m
}

// issue mints proofs for amounts directly, bypassing the quote flow.
func (m *fakeMint) issue(t *testing.T, amounts ...uint64) []domain.Proof {
	t.Helper()
	outputs, pending, err := ecash.RequestOutputs(amounts, testKeysetID)
	require.NoError(t, err)

	m.mu.Lock()
	sigs, err := m.sign(outputs)
	m.mu.Unlock()
	require.NoError(t, err)

	keys, err := ecash.ParseKeys(m.rawKeys())
	require.NoError(t, err)
	proofs, err := ecash.Finalize(sigs, pending, keys)
	require.NoError(t, err)
	return proofs
}

func (m *fakeMint) addMintQuote(id, request string, amount uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mintQuotes[id] = &fakeMintQuote{request: request, amount: amount}
}

func (m *fakeMint) payMintQuote(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mintQuotes[id].paid = true
}

func (m *fakeMint) rawKeys() map[uint64]string {
	out := make(map[uint64]string, len(m.priv))
	for amount, k := range m.priv {
		out[amount] = hex.EncodeToString(k.PubKey().SerializeCompressed())
	}
	return out
}

func (m *fakeMint) sign(outputs []domain.BlindedOutput) ([]domain.BlindSignature, error) {
	sigs := make([]domain.BlindSignature, 0, len(outputs))
	for _, o := range outputs {
		k, ok := m.priv[o.Amount]
		if !ok {
			return nil, fmt.Errorf("no key for amount %d", o.Amount)
		}
		raw, err := hex.DecodeString(o.B)
		if err != nil {
			return nil, err
		}
		b, err := btcec.ParsePubKey(raw)
		if err != nil {
			return nil, err
		}
		c := bdhke.Sign(b, k)
		sigs = append(sigs, domain.BlindSignature{
			ID:     testKeysetID,
			Amount: o.Amount,
			C:      hex.EncodeToString(c.SerializeCompressed()),
		})
	}
	return sigs, nil
}

// spend checks every input is a valid unspent proof and marks it spent.
func (m *fakeMint) spend(inputs []domain.Proof) error {
	for _, p := range inputs {
		if m.spent[p.Secret] {
			return fmt.Errorf("proof already spent")
		}
		raw, err := hex.DecodeString(p.C)
		if err != nil {
			return err
		}
		c, err := btcec.ParsePubKey(raw)
		if err != nil {
			return err
		}
		if !bdhke.Verify([]byte(p.Secret), m.priv[p.Amount], c) {
			return fmt.Errorf("invalid proof")
		}
	}
	for _, p := range inputs {
		m.spent[p.Secret] = true
	}
	return nil
}

func (m *fakeMint) RequestMintQuote(_ context.Context, _ string, amountSat uint64) (*domain.MintQuote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, q := range m.mintQuotes {
		if q.amount == amountSat && q.request != "" && !q.issued {
			return &domain.MintQuote{Quote: id, Request: q.request}, nil
		}
	}
	return nil, errMintDown
}

func (m *fakeMint) MintQuotePaid(_ context.Context, _ string, quoteID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusCalls++
	q, ok := m.mintQuotes[quoteID]
	if !ok {
		return false, errMintDown
	}
	return q.paid, nil
}

func (m *fakeMint) Mint(_ context.Context, _ string, quoteID string, outputs []domain.BlindedOutput) ([]domain.BlindSignature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mintCalls++
	q, ok := m.mintQuotes[quoteID]
	if !ok || !q.paid || q.issued {
		return nil, fmt.Errorf("quote %s not mintable", quoteID)
	}
	q.issued = true
	return m.sign(outputs)
}

func (m *fakeMint) ActiveKeyset(context.Context, string) (string, error) {
	return testKeysetID, nil
}

func (m *fakeMint) Keys(context.Context, string, string) (map[uint64]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rawKeys(), nil
}

func (m *fakeMint) Swap(_ context.Context, _ string, inputs []domain.Proof, outputs []domain.BlindedOutput) ([]domain.BlindSignature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	amounts := make([]uint64, len(outputs))
	for i, o := range outputs {
		amounts[i] = o.Amount
	}
	m.swapCalls = append(m.swapCalls, fakeSwap{inputs: len(inputs), outputs: amounts})

	if m.swapErr != nil {
		return nil, m.swapErr
	}
	if err := m.spend(inputs); err != nil {
		return nil, err
	}
	return m.sign(outputs)
}

func (m *fakeMint) RequestMeltQuote(context.Context, string, string) (*domain.MeltQuote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.meltQuote == nil {
		return nil, errMintDown
	}
	q := *m.meltQuote
	return &q, nil
}

func (m *fakeMint) Melt(_ context.Context, _ string, _ string, inputs []domain.Proof, outputs []domain.BlindedOutput) (*domain.MeltResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.meltInputs = append(m.meltInputs, append([]domain.Proof(nil), inputs...))
	m.blankOutputs = append(m.blankOutputs, len(outputs))

	if m.meltErr != nil {
		return nil, m.meltErr
	}
	if !m.meltPaid {
		return &domain.MeltResult{Paid: false}, nil
	}
	if err := m.spend(inputs); err != nil {
		return nil, err
	}

	res := &domain.MeltResult{Paid: true, Preimage: m.meltPreimage}
	refund := m.meltQuote.FeeReserve - m.feeSpent
	plan, _ := ecash.Decompose(int64(refund))
	if len(plan) > len(outputs) {
		plan = plan[:len(outputs)]
	}
	blank := make([]domain.BlindedOutput, len(plan))
	for i, amount := range plan {
		blank[i] = outputs[i]
		blank[i].Amount = amount
	}
	sigs, err := m.sign(blank)
	if err != nil {
		return nil, err
	}
	res.Change = sigs
	return res, nil
}
