package scene

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// Clip is a named animation of fixed duration in seconds.
type Clip struct {
	Name     string
	Duration float32
	Tracks   []Track
}

// TrackPath is the transform property a track drives.
type TrackPath int

const (
	TrackTranslation TrackPath = iota
	TrackRotation
	TrackScale
)

// Track animates one property of one node. Values holds xyz for
// translation and scale and an xyzw quaternion for rotation, one entry per
// keyframe time.
type Track struct {
	Target *Node
	Path   TrackPath
	Step   bool
	Times  []float32
	Values [][4]float32
}

// Sample returns the interpolated value at time t, holding the first and
// last keyframes outside their range.
func (tr *Track) Sample(t float32) [4]float32 {
	n := len(tr.Times)
	if n == 0 || len(tr.Values) < n {
		return [4]float32{}
	}
	if t <= tr.Times[0] {
		return tr.Values[0]
	}
	if t >= tr.Times[n-1] {
		return tr.Values[n-1]
	}
	i := sort.Search(n, func(i int) bool { return tr.Times[i] > t })
	a, b := tr.Values[i-1], tr.Values[i]
	if tr.Step {
		return a
	}
	f := (t - tr.Times[i-1]) / (tr.Times[i] - tr.Times[i-1])
	if tr.Path == TrackRotation {
		q := mgl32.QuatSlerp(quat(a), quat(b), f)
		return [4]float32{q.V[0], q.V[1], q.V[2], q.W}
	}
	var out [4]float32
	for k := range out {
		out[k] = a[k] + (b[k]-a[k])*f
	}
	return out
}

func (tr *Track) apply(t float32) {
	if tr.Target == nil || len(tr.Times) == 0 {
		return
	}
	v := tr.Sample(t)
	switch tr.Path {
	case TrackTranslation:
		tr.Target.Position = mgl32.Vec3{v[0], v[1], v[2]}
	case TrackRotation:
		tr.Target.Rotation = quat(v).Normalize()
	case TrackScale:
		tr.Target.Scale = mgl32.Vec3{v[0], v[1], v[2]}
	}
}

func quat(v [4]float32) mgl32.Quat {
	return mgl32.Quat{W: v[3], V: mgl32.Vec3{v[0], v[1], v[2]}}
}

// LoopMode selects what an action does when it reaches an end of its clip.
type LoopMode int

const (
	LoopOnce LoopMode = iota
	LoopRepeat
)

// Action plays one clip.
type Action struct {
	Clip      Clip
	Time      float32
	TimeScale float32
	Loop      LoopMode

	// ClampWhenFinished holds the last frame instead of rewinding.
	ClampWhenFinished bool
	Paused            bool

	running bool
}

// Reset rewinds to the start and clears the paused/finished state.
func (a *Action) Reset() *Action {
	a.Time = 0
	a.Paused = false
	a.running = false
	return a
}

// Play starts or restarts playback from the current time.
func (a *Action) Play() *Action {
	a.Paused = false
	a.running = true
	return a
}

// Running reports whether the action is advancing.
func (a *Action) Running() bool { return a.running && !a.Paused }

// Direction is +1 while playing forward and -1 while reversed.
func (a *Action) Direction() int {
	if a.TimeScale < 0 {
		return -1
	}
	return 1
}

// update advances the clock and poses the clip's targets, including on
// the frame the action finishes.
func (a *Action) update(dt float32) {
	if !a.Running() {
		return
	}
	defer a.pose()
	a.Time += dt * a.TimeScale
	d := a.Clip.Duration

	switch a.Loop {
	case LoopRepeat:
		if d <= 0 {
			a.Time = 0
			return
		}
		for a.Time >= d {
			a.Time -= d
		}
		for a.Time < 0 {
			a.Time += d
		}
	default:
		forwardDone := a.TimeScale > 0 && a.Time >= d
		reverseDone := a.TimeScale < 0 && a.Time <= 0
		if !forwardDone && !reverseDone {
			return
		}
		a.Time = min(max(a.Time, 0), d)
		a.running = false
		if !a.ClampWhenFinished {
			a.Time = 0
		}
	}
}

func (a *Action) pose() {
	for i := range a.Clip.Tracks {
		a.Clip.Tracks[i].apply(a.Time)
	}
}

// Mixer owns the actions of one model.
type Mixer struct {
	actions []*Action
}

// NewMixer returns an empty mixer.
func NewMixer() *Mixer { return &Mixer{} }

// ClipAction returns a paused, once-only action for clip.
func (m *Mixer) ClipAction(clip Clip) *Action {
	a := &Action{Clip: clip, TimeScale: 1, Loop: LoopOnce}
	m.actions = append(m.actions, a)
	return a
}

// Actions returns the actions registered on the mixer.
func (m *Mixer) Actions() []*Action { return m.actions }

// Update advances every action by dt seconds.
func (m *Mixer) Update(dt float32) {
	for _, a := range m.actions {
		a.update(dt)
	}
}
