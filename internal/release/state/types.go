// Package state defines the persisted release state document: its types,
// constructors, defaults, and consistency invariants. It has no knowledge
// of clients, locking, or the behavior tree — it is pure data plus the
// predicates the rest of the system relies on.
package state

import "time"

// ReleaseType classifies a release tag.
type ReleaseType string

const (
	ReleaseTypeRC          ReleaseType = "rc"
	ReleaseTypeGA          ReleaseType = "ga"
	ReleaseTypeMaintenance ReleaseType = "maintenance"
	ReleaseTypeMilestone   ReleaseType = "milestone"
)

// PhaseStatus is the lifecycle status of a single build or publish phase.
type PhaseStatus string

const (
	PhaseNotStarted PhaseStatus = "not_started"
	PhaseTriggered  PhaseStatus = "triggered"
	PhaseInProgress PhaseStatus = "in_progress"
	PhaseSucceeded  PhaseStatus = "succeeded"
	PhaseFailed     PhaseStatus = "failed"
	PhaseCancelled  PhaseStatus = "cancelled"
	PhaseTimedOut   PhaseStatus = "timed_out"
)

// IsTerminal reports whether the phase will not transition further within
// the current attempt.
func (s PhaseStatus) IsTerminal() bool {
	switch s {
	case PhaseSucceeded, PhaseFailed, PhaseCancelled, PhaseTimedOut:
		return true
	default:
		return false
	}
}

// PackageResult is the terminal outcome of one package's full pipeline.
type PackageResult string

const (
	ResultPending PackageResult = "pending"
	ResultSuccess PackageResult = "success"
	ResultFailed  PackageResult = "failed"
	ResultSkipped PackageResult = "skipped"
)

// WorkflowRun is a handle to a dispatched workflow run, populated once the
// run has been correlated via its dispatch uuid.
type WorkflowRun struct {
	ID         int64      `json:"id"`
	URL        string     `json:"url"`
	Conclusion string     `json:"conclusion,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

// ArtifactRef is the handoff channel between a package's build and
// publish phase.
type ArtifactRef struct {
	Name         string `json:"name"`
	SourceRunID  int64  `json:"source_run_id"`
	DownloadURL  string `json:"download_url"`
	SHA256       string `json:"sha256,omitempty"`
	Size         int64  `json:"size"`
}

// PhaseState is the build or publish stage of one package.
type PhaseState struct {
	Workflow     string            `json:"workflow"`
	Ref          string            `json:"ref"`
	Inputs       map[string]string `json:"inputs,omitempty"`
	Run          *WorkflowRun      `json:"run,omitempty"`
	Status       PhaseStatus       `json:"status"`
	Attempts     int               `json:"attempts"`
	UUID         string            `json:"uuid,omitempty"`
	DispatchedAt *time.Time        `json:"dispatched_at,omitempty"`
}

// NewPhaseState constructs a phase in its default, not-yet-dispatched
// state from a workflow identifier, ref template, and input map.
func NewPhaseState(workflow, ref string, inputs map[string]string) PhaseState {
	copied := make(map[string]string, len(inputs))
	for k, v := range inputs {
		copied[k] = v
	}
	return PhaseState{
		Workflow: workflow,
		Ref:      ref,
		Inputs:   copied,
		Status:   PhaseNotStarted,
	}
}

// Reset clears run-specific fields and bumps Attempts, per the monotonic
// phase-status invariant: the only way back to not_started is a new
// attempt.
func (p *PhaseState) Reset() {
	p.Run = nil
	p.Status = PhaseNotStarted
	p.UUID = ""
	p.DispatchedAt = nil
	p.Attempts++
}

// PackageState is the per-package record: its two phases, the artifacts
// handed off between them, and the terminal result.
type PackageState struct {
	Enabled   bool                   `json:"enabled"`
	Build     PhaseState             `json:"build"`
	Publish   PhaseState             `json:"publish"`
	Artifacts map[string]ArtifactRef `json:"artifacts,omitempty"`
	Result    PackageResult          `json:"result"`
}

// Ephemeral holds values that must never be persisted: status-channel
// coordinates and per-run override flags consumed only in-process.
type Ephemeral struct {
	StatusChannel   string `json:"status_channel,omitempty"`
	StatusThreadTS  string `json:"status_thread_ts,omitempty"`
	StatusMessageTS string `json:"status_message_ts,omitempty"`
	DryRun          bool   `json:"dry_run,omitempty"`
}

// Meta is house-keeping attached to the release document.
type Meta struct {
	SchemaVersion int       `json:"schema_version"`
	UpdatedAt     time.Time `json:"updated_at"`
	Ephemeral     Ephemeral `json:"ephemeral,omitempty"`
}

// CurrentSchemaVersion is written into every freshly created document.
const CurrentSchemaVersion = 1

// ReleaseState is the root, persisted release state document.
type ReleaseState struct {
	Tag             string                   `json:"tag"`
	ReleaseType     ReleaseType              `json:"release_type"`
	Packages        map[string]*PackageState `json:"packages"`
	Meta            Meta                     `json:"meta"`
	dirty           bool
}

// New creates a fresh release state for tag with the given release type.
func New(tag string, releaseType ReleaseType) *ReleaseState {
	return &ReleaseState{
		Tag:         tag,
		ReleaseType: releaseType,
		Packages:    make(map[string]*PackageState),
		Meta: Meta{
			SchemaVersion: CurrentSchemaVersion,
			UpdatedAt:     time.Now(),
		},
	}
}

// EnsurePackage returns the PackageState for name, creating it from
// scratch on first observation. A package entry is never deleted once
// created.
func (s *ReleaseState) EnsurePackage(name string) *PackageState {
	if s.Packages == nil {
		s.Packages = make(map[string]*PackageState)
	}
	pkg, ok := s.Packages[name]
	if !ok {
		pkg = &PackageState{
			Result: ResultPending,
		}
		s.Packages[name] = pkg
		s.MarkDirty()
	}
	return pkg
}

// MarkDirty flags the document as mutated since the last save.
func (s *ReleaseState) MarkDirty() {
	s.dirty = true
	s.Meta.UpdatedAt = time.Now()
}

// Dirty reports whether the document has unsaved mutations.
func (s *ReleaseState) Dirty() bool {
	return s.dirty
}

// ClearDirty resets the dirty flag, typically right after a successful
// save.
func (s *ReleaseState) ClearDirty() {
	s.dirty = false
}
