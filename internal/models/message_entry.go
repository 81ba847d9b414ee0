package models

// MessageEntry is one FIX message found while indexing a log file.
type MessageEntry struct {
	ID           int    `json:"id" msgpack:"id"`
	LineNumber   int    `json:"lineNumber" msgpack:"lineNumber"`
	BeginString  string `json:"beginString" msgpack:"beginString"`
	MsgType      string `json:"msgType" msgpack:"msgType"`
	MessageName  string `json:"messageName,omitempty" msgpack:"messageName,omitempty"`
	SenderCompID string `json:"senderCompId,omitempty" msgpack:"senderCompId,omitempty"`
	TargetCompID string `json:"targetCompId,omitempty" msgpack:"targetCompId,omitempty"`
	MsgSeqNum    int64  `json:"msgSeqNum,omitempty" msgpack:"msgSeqNum,omitempty"`
	SendingTime  string `json:"sendingTime,omitempty" msgpack:"sendingTime,omitempty"`
	FieldCount   int    `json:"fieldCount" msgpack:"fieldCount"`
	Raw          string `json:"raw" msgpack:"raw"`
}

// MessageTypeCount is the number of indexed messages of one MsgType.
type MessageTypeCount struct {
	MsgType     string `json:"msgType" msgpack:"msgType"`
	MessageName string `json:"messageName,omitempty" msgpack:"messageName,omitempty"`
	Count       int    `json:"count" msgpack:"count"`
}
