package models

// FileReference identifies one message or an inclusive range of messages
// in the storage channel, as message-id offsets relative to the channel
// anchor. A single-message reference has Start == End and Range == false.
type FileReference struct {
	Anchor int64 `json:"anchor"`
	Start  int64 `json:"start"`
	End    int64 `json:"end"`
	Range  bool  `json:"range"`
}

// MessageIDs expands the reference into the ordered list of message ids to
// deliver. A range with Start > End is empty, not an error.
func (r *FileReference) MessageIDs() []int64 {
	if !r.Range {
		return []int64{r.Start}
	}
	if r.Start > r.End {
		return nil
	}
	ids := make([]int64, 0, r.End-r.Start+1)
	for id := r.Start; id <= r.End; id++ {
		ids = append(ids, id)
	}
	return ids
}

// IsEmpty reports whether the reference expands to no messages
func (r *FileReference) IsEmpty() bool {
	return r.Range && r.Start > r.End
}
