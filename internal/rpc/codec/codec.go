// Package codec registers the wire encoding used by every notssh RPC
// service. No protoc toolchain is available to this build, so the
// generated-style service descriptors and client/server stubs in
// internal/rpc/fleet and internal/rpc/control are hand-written in the shape
// protoc-gen-go-grpc would produce, but messages are plain Go structs
// encoded with encoding/gob instead of the protobuf wire format.
//
// grpc-go selects a codec by the name returned from Codec.Name, and its own
// default codec self-registers under the name "proto" from an init() in
// google.golang.org/grpc/encoding/proto. This package imports that package,
// so its init() always runs first (Go runs imported packages' init()
// functions before the importing package's). Registering a second codec under the
// same name here, from this package's own init(), therefore deterministically
// overrides the default — the last call to encoding.RegisterCodec for a
// given name wins, and dial/serve time always happens after all init()
// functions have completed.
package codec

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"google.golang.org/grpc/encoding"
	_ "google.golang.org/grpc/encoding/proto"
)

const Name = "proto"

func init() {
	encoding.RegisterCodec(gobCodec{})
}

// gobCodec implements google.golang.org/grpc/encoding.Codec.
type gobCodec struct{}

func (gobCodec) Name() string { return Name }

func (gobCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("codec: gob marshal: %w", err)
	}
	return buf.Bytes(), nil
}

func (gobCodec) Unmarshal(data []byte, v any) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return fmt.Errorf("codec: gob unmarshal: %w", err)
	}
	return nil
}
