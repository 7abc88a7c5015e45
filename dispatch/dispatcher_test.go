package dispatch

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDispatchRoutesToOwner(t *testing.T) {
	d := New(nil)
	var got []string
	d.SetBase(Table{
		"bottle_unloaded": func(data json.RawMessage) { got = append(got, "unloaded") },
		"bottle_event":    func(data json.RawMessage) { got = append(got, "event") },
	})

	err := d.Dispatch([]byte(`{"action":"bottle_unloaded","data":{"success":true}}`))
	require.NoError(t, err)
	require.Equal(t, []string{"unloaded"}, got)
}

func TestDispatchActiveTableWins(t *testing.T) {
	d := New(nil)
	var got []string
	d.SetBase(Table{
		"bottle_event": func(data json.RawMessage) { got = append(got, "base") },
	})
	d.SetActive(Table{
		"bottle_event": func(data json.RawMessage) { got = append(got, "active") },
	})

	require.NoError(t, d.Dispatch([]byte(`{"action":"bottle_event","data":{}}`)))
	require.Equal(t, []string{"active"}, got)

	// Clearing the active table hands the action back to the base.
	d.SetActive(nil)
	require.NoError(t, d.Dispatch([]byte(`{"action":"bottle_event","data":{}}`)))
	require.Equal(t, []string{"active", "base"}, got)
}

func TestDispatchPassesDataThrough(t *testing.T) {
	d := New(nil)
	var got json.RawMessage
	d.SetBase(Table{
		"barcode_scanned": func(data json.RawMessage) { got = data },
	})

	require.NoError(t, d.Dispatch([]byte(`{"action":"barcode_scanned","data":{"barcode":"123"}}`)))

	var evt struct {
		Barcode string `json:"barcode"`
	}
	require.NoError(t, json.Unmarshal(got, &evt))
	require.Equal(t, "123", evt.Barcode)
}

func TestDispatchUnknownActionDropped(t *testing.T) {
	d := New(nil)
	d.SetBase(Table{
		"bottle_event": func(data json.RawMessage) { t.Fatal("wrong handler called") },
	})
	require.NoError(t, d.Dispatch([]byte(`{"action":"never_seen","data":{}}`)))
}

func TestDispatchMalformedEvent(t *testing.T) {
	d := New(nil)
	require.Error(t, d.Dispatch([]byte(`not json`)))
	require.Error(t, d.Dispatch([]byte(`{"data":{}}`)))
}

func TestDispatchNilTables(t *testing.T) {
	d := New(nil)
	require.NoError(t, d.Dispatch([]byte(`{"action":"anything","data":{}}`)))
}
