package backup

// Restore steps in execution order. StepIndex in a ProgressEvent is the
// position within this sequence.
const (
	StepExtract        = "extract"
	StepValidate       = "validate_manifest"
	StepLoadEntities   = "load_entities"
	StepImportDatabase = "import_database"
	StepRestoreFiles   = "restore_files"
	StepDone           = "done"
)

// ProgressEvent is one fixed checkpoint in a restore. Events are emitted
// at phase boundaries, not continuously.
type ProgressEvent struct {
	Step       string `json:"step"`
	StepIndex  int    `json:"stepIndex"`
	Percentage int    `json:"percentage"`
}

// ProgressFunc receives restore progress checkpoints. A nil ProgressFunc
// disables reporting.
type ProgressFunc func(ProgressEvent)

// notify invokes the callback if one is set.
func (f ProgressFunc) notify(step string, stepIndex, percentage int) {
	if f == nil {
		return
	}
	f(ProgressEvent{Step: step, StepIndex: stepIndex, Percentage: percentage})
}

// ChannelProgress returns a ProgressFunc that forwards events to the
// returned channel, for consumers that want to observe progress as a
// stream. The channel is buffered for the full fixed checkpoint sequence,
// so the restore never blocks on a slow consumer; the caller closes over
// the restore's completion to know when to stop reading.
func ChannelProgress() (ProgressFunc, <-chan ProgressEvent) {
	ch := make(chan ProgressEvent, 16)
	fn := func(event ProgressEvent) {
		select {
		case ch <- event:
		default:
			// Consumer fell behind; drop rather than stall the restore.
		}
	}
	return fn, ch
}
