package types

import (
	"encoding/json"
	"errors"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// The gRPC fee service exchanges google.protobuf.Struct messages whose
// fields mirror the JSON bodies of the HTTP endpoints.

func NewQuoteFeesRequestFromStruct(in *structpb.Struct) (*QuoteFeesRequest, error) {
	var body QuoteFeesRequest
	if err := decodeStruct(in, &body); err != nil {
		return nil, err
	}
	body.normalize()
	return &body, nil
}

func NewGetFeeParametersRequestFromStruct(in *structpb.Struct) (*GetFeeParametersRequest, error) {
	var body struct {
		OrganizerID string `json:"organizer_id"`
		Currency    string `json:"currency"`
	}
	if err := decodeStruct(in, &body); err != nil {
		return nil, err
	}
	return newGetFeeParametersRequest(body.OrganizerID, body.Currency), nil
}

// ToStruct converts a JSON-tagged response into a protobuf Struct.
func ToStruct(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeStruct(in *structpb.Struct, out interface{}) error {
	if in == nil {
		return errors.New("request is required")
	}
	raw, err := protojson.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
