package combat

type RelayOpt func(*Relay)

// WithCastIDs replaces the cast id generator.
func WithCastIDs(fn func() string) RelayOpt {
	return func(r *Relay) {
		r.newID = fn
	}
}
