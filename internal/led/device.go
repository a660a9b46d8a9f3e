package led

// Device is an LED the framework can drive. Triggers call SetBrightness
// from their own goroutines.
type Device interface {
	Name() string
	DefaultTrigger() string
	Flags() Flags
	MaxBrightness() Brightness
	Brightness() Brightness
	SetBrightness(b Brightness) error
}

// Framework is the LED class a device registers with.
type Framework interface {
	Register(dev Device) error
	Unregister(name string)
}

// Flags modify how the framework treats a device.
type Flags uint32

// Device flags.
const (
	// FlagRetainAtShutdown keeps the current brightness on unregister
	// instead of switching the LED off.
	FlagRetainAtShutdown Flags = 1 << iota
)

// Has reports whether all bits of f2 are set in f.
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2
}

// State is the lifecycle state of a Controller.
type State string

// Controller states.
const (
	StateUnregistered State = "unregistered" // Line not held
	StateAcquired     State = "acquired"     // Line held and driven, not yet registered
	StateRegistered   State = "registered"   // Registered with the framework
)
