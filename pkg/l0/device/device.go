// Package device describes the fixed-size records exchanged with rover boards.
package device

import (
	"errors"
	"fmt"
	"sort"

	"github.com/robotalks/rove.go/pkg/l0/xfer"
)

// Kind names a logical device or record kind.
type Kind string

// Known device kinds on the rover motherboard.
const (
	MotorController Kind = "motor_controller"
	BMS             Kind = "bms"
	RoboticArm      Kind = "robotic_arm"
	TCPCommand      Kind = "tcp_cmd"
	Drill           Kind = "drill"
	Gripper         Kind = "gripper"
	SciencePayload  Kind = "science_payload"
	GPS             Kind = "gps"
	LightingBoard   Kind = "lighting_board"
	Camera          Kind = "camera"
	PowerBoard      Kind = "power_board"
	Test            Kind = "test"
)

var (
	// ErrUnknownDevice indicates the device kind or id is not registered.
	ErrUnknownDevice = errors.New("unknown device")
	// ErrDuplicateDevice indicates the kind or id is already registered.
	ErrDuplicateDevice = errors.New("duplicate device")
)

// Descriptor associates a record kind with its size on the wire.
type Descriptor struct {
	Kind Kind `toml:"kind"`
	// IDs are the command ids selecting this device in base station
	// messages. Empty means the device isn't addressable by commands.
	IDs  []byte `toml:"ids"`
	Size int    `toml:"size"`
}

// Validate checks the descriptor.
func (d Descriptor) Validate() error {
	if d.Kind == "" {
		return fmt.Errorf("device kind required")
	}
	if !xfer.ValidSize(d.Size) {
		return fmt.Errorf("device %s: %w: %d", d.Kind, xfer.ErrInvalidSize, d.Size)
	}
	seen := make(map[byte]bool, len(d.IDs))
	for _, id := range d.IDs {
		if seen[id] {
			return fmt.Errorf("device %s: %w: id %d repeated", d.Kind, ErrDuplicateDevice, id)
		}
		seen[id] = true
	}
	return nil
}

// HasID tells whether id selects this device.
func (d Descriptor) HasID(id byte) bool {
	for _, v := range d.IDs {
		if v == id {
			return true
		}
	}
	return false
}

// NewEncoder creates an encoder for the record size.
func (d Descriptor) NewEncoder() (*xfer.Encoder, error) {
	return xfer.NewEncoder(d.Size)
}

// NewDecoder creates a decoder for the record size.
func (d Descriptor) NewDecoder() (*xfer.Decoder, error) {
	return xfer.NewDecoder(d.Size)
}

// Registry is the table of known descriptors.
type Registry struct {
	kinds map[Kind]Descriptor
	ids   map[byte]Kind
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		kinds: make(map[Kind]Descriptor),
		ids:   make(map[byte]Kind),
	}
}

// DefaultRegistry returns the descriptors of the stock motherboard.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, d := range []Descriptor{
		{Kind: Test, Size: 4},
		{Kind: MotorController, IDs: []byte{100, 101}, Size: 2},
		{Kind: RoboticArm, IDs: []byte{8}, Size: 14},
		{Kind: TCPCommand, Size: 33},
	} {
		if err := r.Add(d); err != nil {
			panic(err)
		}
	}
	return r
}

// Add registers a descriptor.
func (r *Registry) Add(d Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if _, exist := r.kinds[d.Kind]; exist {
		return fmt.Errorf("%w: kind %s", ErrDuplicateDevice, d.Kind)
	}
	for _, id := range d.IDs {
		if kind, exist := r.ids[id]; exist {
			return fmt.Errorf("%w: id %d used by %s", ErrDuplicateDevice, id, kind)
		}
	}
	for _, id := range d.IDs {
		r.ids[id] = d.Kind
	}
	r.kinds[d.Kind] = d
	return nil
}

// Set adds or replaces a descriptor.
func (r *Registry) Set(d Descriptor) error {
	old, exist := r.kinds[d.Kind]
	if !exist {
		return r.Add(d)
	}
	delete(r.kinds, old.Kind)
	for _, id := range old.IDs {
		delete(r.ids, id)
	}
	if err := r.Add(d); err != nil {
		r.Add(old)
		return err
	}
	return nil
}

// Lookup finds the descriptor of a kind.
func (r *Registry) Lookup(kind Kind) (Descriptor, error) {
	d, ok := r.kinds[kind]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %s", ErrUnknownDevice, kind)
	}
	return d, nil
}

// ByID finds the descriptor addressed by a command id.
func (r *Registry) ByID(id byte) (Descriptor, error) {
	kind, ok := r.ids[id]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: id %d", ErrUnknownDevice, id)
	}
	return r.kinds[kind], nil
}

// Kinds returns all registered kinds, sorted.
func (r *Registry) Kinds() []Kind {
	kinds := make([]Kind, 0, len(r.kinds))
	for kind := range r.kinds {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Descriptors returns all descriptors sorted by kind.
func (r *Registry) Descriptors() []Descriptor {
	kinds := r.Kinds()
	ds := make([]Descriptor, len(kinds))
	for n, kind := range kinds {
		ds[n] = r.kinds[kind]
	}
	return ds
}
