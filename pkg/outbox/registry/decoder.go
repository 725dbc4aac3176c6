package registry

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/innointernhub/backend/pkg/enums"
)

// DecoderFunc turns an envelope's data block into a typed payload.
type DecoderFunc func(payload json.RawMessage) (interface{}, error)

type registryKey struct {
	eventType enums.OutboxEventType
	version   int
}

// DecoderRegistry stores versioned payload decoders for consumers.
type DecoderRegistry struct {
	mtx      sync.RWMutex
	registry map[registryKey]DecoderFunc
}

func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{registry: make(map[registryKey]DecoderFunc)}
}

func (r *DecoderRegistry) Register(eventType enums.OutboxEventType, version int, decoder DecoderFunc) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.registry[registryKey{eventType: eventType, version: version}] = decoder
}

// Decode runs the decoder registered for the event type and version. Unknown
// pairs are non-retryable.
func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (interface{}, error) {
	r.mtx.RLock()
	decoder, ok := r.registry[registryKey{eventType: eventType, version: version}]
	r.mtx.RUnlock()
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("decoder not registered for %s@v%d", eventType, version))
	}
	out, err := decoder(payload)
	if err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s@v%d: %w", eventType, version, err))
	}
	return out, nil
}

// JSONDecoder decodes the payload into a fresh *T.
func JSONDecoder[T any]() DecoderFunc {
	return func(payload json.RawMessage) (interface{}, error) {
		out := new(T)
		if err := json.Unmarshal(payload, out); err != nil {
			return nil, err
		}
		return out, nil
	}
}
