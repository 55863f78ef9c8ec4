package adapter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryMsg_WireShape(t *testing.T) {
	limit := uint32(10)
	after := "k1"

	got, err := json.Marshal(&QueryMsg{Get: &GetQuery{Collection: "todos", Document: "abc"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Get":{"collection":"todos","document":"abc"}}`, string(got))

	got, err = json.Marshal(&QueryMsg{UserDocuments: &UserDocumentsQuery{Owner: "wasm1xyz", Collection: "todos"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"UserDocuments":{"owner":"wasm1xyz","collection":"todos"}}`, string(got))

	got, err = json.Marshal(&QueryMsg{UserDocuments: &UserDocumentsQuery{Owner: "o", Collection: "c", StartAfter: &after, Limit: &limit}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"UserDocuments":{"owner":"o","collection":"c","start_after":"k1","limit":10}}`, string(got))
}

func TestExecuteMsg_WireShape(t *testing.T) {
	tests := []struct {
		name string
		msg  *ExecuteMsg
		want string
	}{
		{"Set", &ExecuteMsg{Set: &WriteDocument{Collection: "todos", Document: "1", Data: `{"a":1}`}},
			`{"Set":{"collection":"todos","document":"1","data":"{\"a\":1}"}}`},
		{"Update", &ExecuteMsg{Update: &WriteDocument{Collection: "todos", Document: "1", Data: "{}"}},
			`{"Update":{"collection":"todos","document":"1","data":"{}"}}`},
		{"Delete", &ExecuteMsg{Delete: &DeleteDocument{Collection: "todos", Document: "1"}},
			`{"Delete":{"collection":"todos","document":"1"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.msg)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
			assert.Equal(t, tt.name, tt.msg.Name())
		})
	}
	assert.Equal(t, "unknown", (&ExecuteMsg{}).Name())
}

func TestUserDocumentsResponse_TupleDecoding(t *testing.T) {
	var resp UserDocumentsResponse
	err := json.Unmarshal([]byte(`{"documents":[["a",{"data":"{\"x\":1}"}],["b",{"data":"{}"}]]}`), &resp)
	require.NoError(t, err)
	require.Len(t, resp.Documents, 2)
	assert.Equal(t, "a", resp.Documents[0].Key)
	assert.Equal(t, `{"x":1}`, resp.Documents[0].Document.Data)

	out, err := json.Marshal(resp.Documents[1])
	require.NoError(t, err)
	assert.JSONEq(t, `["b",{"data":"{}"}]`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"documents":[["only-key"]]}`), &resp))
}

func TestGetResponse_AbsentDocument(t *testing.T) {
	var resp GetResponse
	require.NoError(t, json.Unmarshal([]byte(`{"document":null}`), &resp))
	assert.Nil(t, resp.Document)

	require.NoError(t, json.Unmarshal([]byte(`{}`), &resp))
	assert.Nil(t, resp.Document)
}
