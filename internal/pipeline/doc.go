// Package pipeline executes one transcode job as an ordered sequence of
// stages: fetch the input, transcode it, derive thumbnails, upload the
// outputs, and finalize the records. A stage failure retries the same stage
// without advancing; a single attempt counter spans the whole job and forces
// a terminal failure once it passes the ceiling. Every execution ends in a
// terminal job state, panic or not, so a job can never stay running forever.
package pipeline
