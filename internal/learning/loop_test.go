package learning

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ufindi/findocflow/internal/models"
	"github.com/ufindi/findocflow/internal/store"
)

func seedDocument(t *testing.T, docs store.DocumentStore, status models.Status) *models.Document {
	t.Helper()
	doc := &models.Document{
		ID:      "doc-1",
		CaseID:  "case-1",
		DocType: models.DocTypeBankStatement,
		Status:  status,
		Fields: []models.Field{
			{Key: "closing_balance", ExtractedValue: "150.00", Confidence: 62},
			{Key: "bank_name", ExtractedValue: "First National", Confidence: 93},
		},
	}
	require.NoError(t, docs.Create(context.Background(), doc))
	return doc
}

func newLoop(t *testing.T) (*Loop, store.DocumentStore, *store.MemoryCorrectionLog) {
	t.Helper()
	docs := store.NewMemoryDocumentStore()
	log := store.NewMemoryCorrectionLog()
	return NewLoop(docs, log, store.NewKeyedMutex()), docs, log
}

func TestCorrectField_InReview(t *testing.T) {
	loop, docs, log := newLoop(t)
	seedDocument(t, docs, models.StatusReview)
	ctx := context.Background()

	changed, err := loop.CorrectField(ctx, "doc-1", "closing_balance", "155.00")
	require.NoError(t, err)
	assert.True(t, changed)

	doc, err := docs.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusReview, doc.Status, "correction never changes status")

	f := doc.FieldByKey("closing_balance")
	require.NotNil(t, f.CorrectedValue)
	assert.Equal(t, "155.00", *f.CorrectedValue)
	assert.Equal(t, "150.00", f.ExtractedValue, "original extraction is kept for audit")
	assert.Equal(t, float64(62), f.Confidence, "original confidence is kept for audit")
	assert.Equal(t, "155.00", f.EffectiveValue())
	assert.Equal(t, float64(100), f.EffectiveConfidence())

	events, err := log.Events(ctx, store.Window{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "doc-1", events[0].DocumentID)
	assert.Equal(t, "closing_balance", events[0].FieldKey)
	assert.Equal(t, models.DocTypeBankStatement, events[0].DocType)
	assert.Equal(t, "150.00", events[0].PreviousValue)
	assert.Equal(t, "155.00", events[0].NewValue)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestCorrectField_InDone(t *testing.T) {
	loop, docs, _ := newLoop(t)
	seedDocument(t, docs, models.StatusDone)
	ctx := context.Background()

	changed, err := loop.CorrectField(ctx, "doc-1", "bank_name", "First National Bank")
	require.NoError(t, err)
	assert.True(t, changed)

	doc, err := docs.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, doc.Status)
}

func TestCorrectField_MidPipelineRejected(t *testing.T) {
	loop, docs, log := newLoop(t)
	seedDocument(t, docs, models.StatusClassifying)

	var invalidState *models.InvalidStateError
	_, err := loop.CorrectField(context.Background(), "doc-1", "bank_name", "Other Bank")
	require.ErrorAs(t, err, &invalidState)

	events, err := log.Events(context.Background(), store.Window{})
	require.NoError(t, err)
	assert.Empty(t, events, "rejected corrections leave no trace in the log")
}

func TestCorrectField_NotFound(t *testing.T) {
	loop, docs, _ := newLoop(t)
	seedDocument(t, docs, models.StatusReview)

	var notFound *models.NotFoundError
	_, err := loop.CorrectField(context.Background(), "doc-9", "bank_name", "x")
	require.ErrorAs(t, err, &notFound)

	_, err = loop.CorrectField(context.Background(), "doc-1", "no_such_field", "x")
	require.ErrorAs(t, err, &notFound)
}

func TestCorrectField_NoOpIsLoggedButUnchanged(t *testing.T) {
	loop, docs, log := newLoop(t)
	seedDocument(t, docs, models.StatusReview)
	ctx := context.Background()

	changed, err := loop.CorrectField(ctx, "doc-1", "closing_balance", "150.00")
	require.NoError(t, err)
	assert.False(t, changed)

	events, err := log.Events(ctx, store.Window{})
	require.NoError(t, err)
	assert.Len(t, events, 1, "no-op corrections still land in the audit log")

	clusters, err := loop.ClusterErrors(ctx, store.Window{})
	require.NoError(t, err)
	assert.Empty(t, clusters, "no-op corrections carry no clustering weight")
}

func TestCorrectField_SecondCorrectionUsesEffectivePrevious(t *testing.T) {
	loop, docs, log := newLoop(t)
	seedDocument(t, docs, models.StatusReview)
	ctx := context.Background()

	_, err := loop.CorrectField(ctx, "doc-1", "closing_balance", "155.00")
	require.NoError(t, err)
	_, err = loop.CorrectField(ctx, "doc-1", "closing_balance", "160.00")
	require.NoError(t, err)

	events, err := log.Events(ctx, store.Window{})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "155.00", events[1].PreviousValue, "the prior correction is the new baseline")
}

func TestClusterErrors(t *testing.T) {
	loop, docs, _ := newLoop(t)
	ctx := context.Background()

	for i, id := range []string{"doc-a", "doc-b", "doc-c", "doc-d"} {
		doc := &models.Document{
			ID:      id,
			DocType: models.DocTypeBankStatement,
			Status:  models.StatusReview,
			Fields: []models.Field{
				{Key: "closing_balance", ExtractedValue: "100.00", Confidence: 60},
				{Key: "bank_name", ExtractedValue: "Frist National", Confidence: 70},
			},
		}
		require.NoError(t, docs.Create(ctx, doc))
		// Every document gets the same major numeric miss on closing_balance.
		_, err := loop.CorrectField(ctx, id, "closing_balance", "200.00")
		require.NoError(t, err)
		if i == 0 {
			_, err := loop.CorrectField(ctx, id, "bank_name", "First National")
			require.NoError(t, err)
		}
	}

	clusters, err := loop.ClusterErrors(ctx, store.Window{})
	require.NoError(t, err)
	require.Len(t, clusters, 2)

	// Largest cluster first.
	assert.Equal(t, "bank_statement/closing_balance/major", clusters[0].Signature)
	assert.Equal(t, 4, clusters[0].MemberCount)
	assert.Len(t, clusters[0].RepresentativeCorrections, 3, "representatives are capped")

	assert.Equal(t, "bank_statement/bank_name/text", clusters[1].Signature)
	assert.Equal(t, 1, clusters[1].MemberCount)
}

func TestClusterErrors_WindowFiltering(t *testing.T) {
	loop, docs, log := newLoop(t)
	ctx := context.Background()
	seedDocument(t, docs, models.StatusReview)

	old := models.CorrectionEvent{
		DocumentID:    "doc-old",
		FieldKey:      "closing_balance",
		DocType:       models.DocTypeBankStatement,
		PreviousValue: "1.00",
		NewValue:      "2.00",
		Timestamp:     time.Now().AddDate(0, 0, -90),
	}
	require.NoError(t, log.Append(ctx, old))
	_, err := loop.CorrectField(ctx, "doc-1", "closing_balance", "155.00")
	require.NoError(t, err)

	clusters, err := loop.ClusterErrors(ctx, store.Window{Since: time.Now().AddDate(0, 0, -30)})
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	assert.Equal(t, 1, clusters[0].MemberCount, "events outside the window are excluded")
}

func TestRetrainTrigger(t *testing.T) {
	clusters := []models.ErrorCluster{
		{Signature: "bank_statement/closing_balance/major", MemberCount: 12},
		{Signature: "invoice/total_amount/minor", MemberCount: 10},
		{Signature: "payslip/net_pay/text", MemberCount: 3},
	}

	triggered := RetrainTrigger(clusters, 10)
	require.Len(t, triggered, 1, "threshold is exclusive")
	assert.Equal(t, "bank_statement/closing_balance/major", triggered[0].Signature)

	assert.Empty(t, RetrainTrigger(nil, 0))
}
