// Package events decouples the parts of the system that request background
// work from the pipeline queues that execute it.
//
// The upload flow emits a JobRequestEvent per pipeline job when a video
// finishes uploading; the pipeline dispatcher decodes each event and hands
// it to the matching queue. Neither side imports the other, which keeps the
// service layer free of queue wiring.
package events
