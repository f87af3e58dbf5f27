package legacy

// Splitter separates binary records from interleaved user text. A start
// byte opens a record and is kept in it; an end byte closes it.
type Splitter struct {
	inRecord bool
	record   []byte
	records  [][]byte
	user     []byte
}

// Write feeds raw stream bytes. It never fails.
func (s *Splitter) Write(p []byte) (int, error) {
	for _, b := range p {
		if !s.inRecord && b == StartByte {
			s.inRecord = true
		}
		if !s.inRecord {
			s.user = append(s.user, b)
			continue
		}
		s.record = append(s.record, b)
		if b == EndByte {
			s.records = append(s.records, s.record)
			s.record = nil
			s.inRecord = false
		}
	}
	return len(p), nil
}

// Records returns and clears every complete record seen so far.
func (s *Splitter) Records() [][]byte {
	out := s.records
	s.records = nil
	return out
}

// UserText returns and clears the user bytes seen so far.
func (s *Splitter) UserText() []byte {
	out := s.user
	s.user = nil
	return out
}
