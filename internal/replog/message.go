// Package replog holds the types shared by the master and secondary roles of
// the replicated log: the wire-level Message, and AckFuture, the primitive
// the master's replication engine uses to learn when a secondary has durably
// applied a write.
package replog

// Message is the unit of replication. Id is assigned by the master and is
// unique and strictly increasing starting from 1. Text is opaque to the log.
type Message struct {
	ID   uint64 `json:"id"`
	Text string `json:"text"`
}

// ByID sorts a slice of Message in increasing id order.
type ByID []Message

func (b ByID) Len() int           { return len(b) }
func (b ByID) Less(i, j int) bool { return b[i].ID < b[j].ID }
func (b ByID) Swap(i, j int)      { b[i], b[j] = b[j], b[i] }
