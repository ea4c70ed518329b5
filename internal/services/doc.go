// Package services provides the shared error taxonomy and context annotations
// used by the pipeline stages and their collaborators.
package services
