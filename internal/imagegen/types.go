package imagegen

// Backends is the fixed, ordered list of model engines one fan-out request is
// spread across. Slot i of every aggregate result corresponds to Backends[i].
var Backends = []string{
	"seedream/4.5-edit",
	"flux/1.1-pro-ultra",
	"ideogram/v2",
	"recraft/v3",
}

// Outcome is the terminal result of one backend's pipeline. URL is set iff the
// backend produced a usable variant; Err records why it did not, for logging
// only.
type Outcome struct {
	Backend string
	URL     string
	Err     error
}

// OK reports whether the pipeline resolved with a result URL.
func (o Outcome) OK() bool {
	return o.Err == nil && o.URL != ""
}

// ResultFunc receives each backend's outcome as soon as that backend's
// pipeline resolves, independent of its siblings. Implementations must
// tolerate concurrent invocation.
type ResultFunc func(index int, outcome Outcome)
