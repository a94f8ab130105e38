package txsubmit

import (
	"fmt"
	"math/big"

	"github.com/dmitrijs2005/invisibledrop/internal/common"
	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Event is a decoded log.
type Event struct {
	Name string
	Args map[string]any
	Log  *types.Log
}

// EventDecoder finds and decodes one event type in receipts. Logs are matched
// by event id and by the number of indexed topics, so ERC-20 and ERC-721
// Transfer events are told apart.
type EventDecoder struct {
	contractABI *abi.ABI
	event       abi.Event
	indexed     abi.Arguments
}

func NewEventDecoder(contractABI *abi.ABI, name string) (*EventDecoder, error) {
	ev, ok := contractABI.Events[name]
	if !ok {
		return nil, fmt.Errorf("event %q not in ABI", name)
	}
	var indexed abi.Arguments
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return &EventDecoder{contractABI: contractABI, event: ev, indexed: indexed}, nil
}

// MustEventDecoder is NewEventDecoder for package-level ABIs.
func MustEventDecoder(contractABI *abi.ABI, name string) *EventDecoder {
	d, err := NewEventDecoder(contractABI, name)
	if err != nil {
		panic(err)
	}
	return d
}

func (d *EventDecoder) matches(l *types.Log, emitter ethcommon.Address) bool {
	if len(l.Topics) != 1+len(d.indexed) || l.Topics[0] != d.event.ID {
		return false
	}
	return emitter == (ethcommon.Address{}) || l.Address == emitter
}

// Find decodes the first matching log emitted by emitter; a zero emitter
// accepts any address. found is false when no log matches.
func (d *EventDecoder) Find(receipt *types.Receipt, emitter ethcommon.Address) (ev Event, found bool, err error) {
	if receipt == nil {
		return Event{}, false, nil
	}
	for _, l := range receipt.Logs {
		if !d.matches(l, emitter) {
			continue
		}
		args := make(map[string]any)
		if len(l.Data) > 0 {
			if err := d.contractABI.UnpackIntoMap(args, d.event.Name, l.Data); err != nil {
				return Event{}, false, fmt.Errorf("decode %s data: %w", d.event.Name, err)
			}
		}
		if err := abi.ParseTopicsIntoMap(args, d.indexed, l.Topics[1:]); err != nil {
			return Event{}, false, fmt.Errorf("decode %s topics: %w", d.event.Name, err)
		}
		return Event{Name: d.event.Name, Args: args, Log: l}, true, nil
	}
	return Event{}, false, nil
}

// ID returns the decimal value of the uint field of the first matching event,
// or common.UnknownID when the event is absent or undecodable. The state
// change has already happened by then, so a missing id is not an error.
func (d *EventDecoder) ID(receipt *types.Receipt, emitter ethcommon.Address, field string) string {
	ev, found, err := d.Find(receipt, emitter)
	if err != nil || !found {
		return common.UnknownID
	}
	v, ok := ev.Args[field].(*big.Int)
	if !ok {
		return common.UnknownID
	}
	return v.String()
}
