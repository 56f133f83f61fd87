package relay

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"moff.io/walletkit/pkg/log"
)

const (
	methodSubscribe    = "irn_subscribe"
	methodUnsubscribe  = "irn_unsubscribe"
	methodPublish      = "irn_publish"
	methodSubscription = "irn_subscription"
)

type jsonRpcRequest struct {
	ID      int64       `json:"id"`
	JSONRpc string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

func newJSONRpcRequest(id int64, method string, params interface{}) *jsonRpcRequest {
	return &jsonRpcRequest{
		ID:      id,
		JSONRpc: "2.0",
		Method:  method,
		Params:  params,
	}
}

func (e *jsonRpcRequest) Marshal() []byte {
	s, err := json.Marshal(e)
	if err != nil {
		log.Errorf("marshal relay request %v:%v", e.Method, err)
	}
	return s
}

type jsonRpcResult struct {
	ID      int64       `json:"id"`
	JSONRpc string      `json:"jsonrpc"`
	Result  interface{} `json:"result"`
}

func (e *jsonRpcResult) Marshal() []byte {
	s, _ := json.Marshal(e)
	return s
}

type subscribeParams struct {
	Topic string `json:"topic"`
}

type unsubscribeParams struct {
	Topic string `json:"topic"`
	ID    string `json:"id"`
}

type publishParams struct {
	Topic   string `json:"topic"`
	Message string `json:"message"`
	TTL     int64  `json:"ttl"`
	Tag     int    `json:"tag"`
}

// Message is a payload delivered by the relay on one of our subscriptions.
type Message struct {
	SubscriptionID string
	Topic          string
	Message        string
	PublishedAt    int64
	Tag            int
}

func newMessage(params gjson.Result) Message {
	data := params.Get("data")
	return Message{
		SubscriptionID: params.Get("id").String(),
		Topic:          data.Get("topic").String(),
		Message:        data.Get("message").String(),
		PublishedAt:    data.Get("publishedAt").Int(),
		Tag:            int(data.Get("tag").Int()),
	}
}

// RPCError is a JSON-RPC error object returned by the relay.
type RPCError struct {
	Method  string
	Code    int64
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("relay %s failed: %s (code %d)", e.Method, e.Message, e.Code)
}

type response struct {
	result gjson.Result
	err    error
}
