package chains

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"moff.io/walletkit/pkg/errors"
)

// Namespace is the CAIP-2 namespace of every chain in the table.
const Namespace = "eip155"

type Blockchain struct {
	ID    int
	IDHex string
	Name  string
}

// CAIP2 renders the chain as "eip155:<id>".
func (in *Blockchain) CAIP2() string {
	return CAIP2(in.ID)
}

var (
	Array = []*Blockchain{
		{ID: 1, Name: "eth"},
		{ID: 5, Name: "goerli"},
		{ID: 11155111, Name: "sepolia"},
		{ID: 10, Name: "optimism"},
		{ID: 137, Name: "polygon"},
		{ID: 80001, Name: "mumbai"},
		{ID: 56, Name: "bsc"},
		{ID: 97, Name: "bsc testnet"},
		{ID: 42161, Name: "arbitrum"},
		{ID: 8453, Name: "base"},
		{ID: 43114, Name: "avalanche"},
		{ID: 43113, Name: "avalanche testnet"},
		{ID: 250, Name: "fantom"},
		{ID: 25, Name: "cronos"},
	}

	Mapping = map[int]*Blockchain{}
)

// nolint:gochecknoinits
func init() {
	for _, c := range Array {
		c.IDHex = hexutil.EncodeUint64(uint64(c.ID))
		Mapping[c.ID] = c
	}
}

// Lookup returns the known chain with id.
func Lookup(id int) (*Blockchain, bool) {
	c, ok := Mapping[id]
	return c, ok
}

func CAIP2(id int) string {
	return fmt.Sprintf("%s:%d", Namespace, id)
}

// ParseCAIP2 parses "eip155:<id>". Other namespaces are rejected.
func ParseCAIP2(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 || parts[0] != Namespace {
		return 0, errors.Errorf("unsupported chain %q", s)
	}
	id, err := strconv.Atoi(parts[1])
	if err != nil || id <= 0 {
		return 0, errors.Errorf("invalid chain reference %q", s)
	}
	return id, nil
}
