package metrics

// RecordVote counts a vote toggle; outcome is created, retracted or flipped
func (m *Metrics) RecordVote(kind, outcome string) {
	m.safeExecute("RecordVote", func() {
		m.VotesCastTotal.WithLabelValues(kind, outcome).Inc()
	})
}

// IncrementCommentCreated increments comment creation counter
func (m *Metrics) IncrementCommentCreated() {
	m.safeExecute("IncrementCommentCreated", func() {
		m.CommentsCreatedTotal.Inc()
	})
}

// AddCommentsDeleted adds the size of a removed subtree
func (m *Metrics) AddCommentsDeleted(count int) {
	m.safeExecute("AddCommentsDeleted", func() {
		m.CommentsDeletedTotal.Add(float64(count))
	})
}

// RecordRosterTransition counts confirmed, waiting, left or promoted transitions
func (m *Metrics) RecordRosterTransition(transition string) {
	m.safeExecute("RecordRosterTransition", func() {
		m.RosterTransitionsTotal.WithLabelValues(transition).Inc()
	})
}

// RecordTxRetry counts a transparent transaction retry
func (m *Metrics) RecordTxRetry(reason string) {
	m.safeExecute("RecordTxRetry", func() {
		m.TxRetriesTotal.WithLabelValues(reason).Inc()
	})
}

// AddDriftRepaired counts counters fixed by reconciliation
func (m *Metrics) AddDriftRepaired(kind string, count int) {
	m.safeExecute("AddDriftRepaired", func() {
		m.DriftRepairedTotal.WithLabelValues(kind).Add(float64(count))
	})
}

// RecordOutboxPublish counts a publish attempt
func (m *Metrics) RecordOutboxPublish(err error) {
	m.safeExecute("RecordOutboxPublish", func() {
		if err != nil {
			m.OutboxPublishErrors.Inc()
			return
		}
		m.OutboxPublishedTotal.Inc()
	})
}

// SetWaitingParticipants sets the waiting list gauge
func (m *Metrics) SetWaitingParticipants(count int64) {
	m.safeExecute("SetWaitingParticipants", func() {
		m.WaitingParticipants.Set(float64(count))
	})
}

// SetOutboxPending sets the outbox backlog gauge
func (m *Metrics) SetOutboxPending(count int64) {
	m.safeExecute("SetOutboxPending", func() {
		m.OutboxPending.Set(float64(count))
	})
}

// SetCommentsTotal sets the stored comments gauge
func (m *Metrics) SetCommentsTotal(count int64) {
	m.safeExecute("SetCommentsTotal", func() {
		m.CommentsTotal.Set(float64(count))
	})
}
