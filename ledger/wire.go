package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/suirifyprotocol/suirify-sub000/interfaces"
)

// flexInt64 decodes JSON numbers that fullnodes encode either as numbers or
// as decimal strings.
type flexInt64 int64

func (f *flexInt64) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		*f = 0
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid numeric string %q: %w", s, err)
		}
		*f = flexInt64(v)
		return nil
	}
	var v int64
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	*f = flexInt64(v)
	return nil
}

// wireEventID is the {txDigest, eventSeq} pair identifying an event.
type wireEventID struct {
	TxDigest string    `json:"txDigest"`
	EventSeq flexInt64 `json:"eventSeq"`
}

// wireEvent is the RPC shape of one emitted event.
type wireEvent struct {
	ID          wireEventID     `json:"id"`
	Type        string          `json:"type"`
	Sender      string          `json:"sender"`
	TimestampMs flexInt64       `json:"timestampMs"`
	ParsedJSON  json.RawMessage `json:"parsedJson"`
}

func (e *wireEvent) toLedgerEvent() interfaces.LedgerEvent {
	return interfaces.LedgerEvent{
		Type:        e.Type,
		TxDigest:    interfaces.TransactionDigest(e.ID.TxDigest),
		EventSeq:    uint64(e.ID.EventSeq),
		TimestampMs: int64(e.TimestampMs),
		Sender:      interfaces.WalletAddress(e.Sender).Normalized(),
		ParsedJSON:  e.ParsedJSON,
	}
}

// wireEventPage is the RPC shape of an event query result.
type wireEventPage struct {
	Data        []wireEvent      `json:"data"`
	NextCursor  *wireEventCursor `json:"nextCursor"`
	HasNextPage bool             `json:"hasNextPage"`
}

type wireEventCursor struct {
	TxDigest string `json:"txDigest"`
	EventSeq string `json:"eventSeq"`
}

// wireObjectData is the RPC shape of object content.
type wireObjectData struct {
	ObjectID string    `json:"objectId"`
	Version  flexInt64 `json:"version"`
	Type     string    `json:"type"`
	Content  *struct {
		DataType string          `json:"dataType"`
		Type     string          `json:"type"`
		Fields   json.RawMessage `json:"fields"`
	} `json:"content"`
}

func (d *wireObjectData) toLedgerObject() *interfaces.LedgerObject {
	obj := &interfaces.LedgerObject{
		ObjectID: interfaces.ObjectID(d.ObjectID).Normalized(),
		Type:     d.Type,
		Version:  uint64(d.Version),
	}
	if d.Content != nil {
		obj.Fields = d.Content.Fields
		if obj.Type == "" {
			obj.Type = d.Content.Type
		}
	}
	return obj
}

// wireObjectResponse wraps object data together with the RPC-level error slot
// ("notExists", "deleted").
type wireObjectResponse struct {
	Data  *wireObjectData `json:"data"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

// wireOwnedObjectsPage is the RPC shape of an owned-objects query result.
type wireOwnedObjectsPage struct {
	Data []struct {
		Data *wireObjectData `json:"data"`
	} `json:"data"`
	NextCursor  json.RawMessage `json:"nextCursor"`
	HasNextPage bool            `json:"hasNextPage"`
}

// wireTxBytes is the RPC shape of an unsigned transaction built server-side.
type wireTxBytes struct {
	TxBytes string `json:"txBytes"`
}

// wireTxResponse is the RPC shape of an executed transaction block.
type wireTxResponse struct {
	Digest  string `json:"digest"`
	Effects *struct {
		Status struct {
			Status string `json:"status"`
			Error  string `json:"error"`
		} `json:"status"`
	} `json:"effects"`
	Events        []wireEvent `json:"events"`
	ObjectChanges []struct {
		Type       string `json:"type"`
		ObjectType string `json:"objectType"`
		ObjectID   string `json:"objectId"`
		Owner      *struct {
			AddressOwner string `json:"AddressOwner"`
		} `json:"owner"`
	} `json:"objectChanges"`
}
