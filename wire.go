package aura

// Request is the wire form of one server action.
type Request struct {
	ID         string         `json:"id" msgpack:"id"`
	Descriptor string         `json:"descriptor" msgpack:"descriptor"`
	Params     map[string]any `json:"params,omitempty" msgpack:"params,omitempty"`
	Background bool           `json:"background,omitempty" msgpack:"background,omitempty"`
	Caboose    bool           `json:"caboose,omitempty" msgpack:"caboose,omitempty"`
}

// Batch is one transport request carrying several actions.
type Batch struct {
	ID         string    `json:"id" msgpack:"id"`
	Background bool      `json:"background,omitempty" msgpack:"background,omitempty"`
	Actions    []Request `json:"actions" msgpack:"actions"`
}

// WireError is an error reported by the server for one action.
type WireError struct {
	Message string `json:"message" msgpack:"message"`
}

// ActionResponse is the server's answer for one action, correlated by ID.
type ActionResponse struct {
	ID          string      `json:"id" msgpack:"id"`
	State       Status      `json:"state" msgpack:"state"`
	ReturnValue any         `json:"returnValue,omitempty" msgpack:"returnValue,omitempty"`
	Errors      []WireError `json:"error,omitempty" msgpack:"error,omitempty"`
}

// BatchResponse is the server's answer to a Batch.
type BatchResponse struct {
	Actions []ActionResponse `json:"actions" msgpack:"actions"`
}

// Lookup returns the response for the given action id.
func (br *BatchResponse) Lookup(id string) (ActionResponse, bool) {
	if br == nil {
		return ActionResponse{}, false
	}
	for _, ar := range br.Actions {
		if ar.ID == id {
			return ar, true
		}
	}
	return ActionResponse{}, false
}
