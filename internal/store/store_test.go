package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abaplay/outreach/internal/domain"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func TestCreateCampaignReturnsID(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO campaigns")).
		WithArgs(sqlmock.AnyArg(), "SP batch", "São Paulo", "piloto").
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := s.CreateCampaign(context.Background(), "SP batch", "São Paulo", "piloto")
	require.NoError(t, err)
	assert.Len(t, id, 8)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCampaignRequiresName(t *testing.T) {
	s, mock := newMockStore(t)
	_, err := s.CreateCampaign(context.Background(), "", "", "")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCampaignNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, name").
		WithArgs("nope1234").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	c, err := s.GetCampaign(context.Background(), "nope1234")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestUpdateLeadScoreRejectsRangeBeforeSQL(t *testing.T) {
	s, mock := newMockStore(t)

	// No statement may reach the database for an out-of-range score.
	err := s.UpdateLeadScore(context.Background(), "abcd1234", 101)
	assert.True(t, IsConstraint(err, ConstraintCheck), "want check-constraint error, got %v", err)

	err = s.UpdateLeadScore(context.Background(), "abcd1234", -1)
	assert.True(t, IsConstraint(err, ConstraintCheck))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateLeadScoreValid(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE leads SET score")).
		WithArgs(85, "abcd1234").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.UpdateLeadScore(context.Background(), "abcd1234", 85))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateLeadValidatesEnums(t *testing.T) {
	s, mock := newMockStore(t)

	_, err := s.CreateLead(context.Background(), &domain.Lead{
		CampaignID: "camp0001",
		ClinicName: "Clínica A",
		Status:     domain.LeadStatus("archived"),
	})
	assert.True(t, IsConstraint(err, ConstraintCheck))

	_, err = s.CreateLead(context.Background(), &domain.Lead{
		CampaignID: "camp0001",
		ClinicName: "Clínica A",
		Confidence: domain.Confidence("altíssima"),
	})
	assert.True(t, IsConstraint(err, ConstraintCheck))

	_, err = s.CreateLead(context.Background(), &domain.Lead{
		CampaignID: "camp0001",
		ClinicName: "Clínica A",
		Score:      150,
	})
	assert.True(t, IsConstraint(err, ConstraintCheck))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateLeadRefreshesCampaignCounter(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO leads")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE campaigns")).
		WithArgs("camp0001").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	id, err := s.CreateLead(context.Background(), &domain.Lead{
		CampaignID: "camp0001",
		ClinicName: "Clínica ABA Esperança",
		Email:      "Contato@Clinica.com.br",
		Confidence: domain.ConfidenceAlta,
		Score:      85,
	})
	require.NoError(t, err)
	assert.Len(t, id, 8)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddToBlacklistIdempotentAndCacheVisible(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	// Initial membership check loads the full set once.
	mock.ExpectQuery(regexp.QuoteMeta("SELECT email FROM blacklist")).
		WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("old@x.com"))

	suppressed, err := s.IsBlacklisted(ctx, "spam@x.com")
	require.NoError(t, err)
	assert.False(t, suppressed)

	// Duplicate-safe insert: ON CONFLICT DO NOTHING absorbs repeats.
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (email) DO NOTHING")).
		WithArgs(sqlmock.AnyArg(), "spam@x.com", "user_request", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.AddToBlacklist(ctx, "Spam@X.com", domain.ReasonUserRequest, ""))

	// Membership must flip immediately, without another SELECT: the cache
	// was updated on the insert path, not by TTL expiry.
	suppressed, err = s.IsBlacklisted(ctx, "SPAM@x.com")
	require.NoError(t, err)
	assert.True(t, suppressed)

	// Inserting the same address again succeeds as a no-op.
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (email) DO NOTHING")).
		WithArgs(sqlmock.AnyArg(), "spam@x.com", "user_request", nil).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, s.AddToBlacklist(ctx, "spam@x.com", domain.ReasonUserRequest, ""))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddToBlacklistRejectsUnknownReason(t *testing.T) {
	s, mock := newMockStore(t)
	err := s.AddToBlacklist(context.Background(), "a@x.com", domain.BlacklistReason("grudge"), "")
	assert.True(t, IsConstraint(err, ConstraintCheck))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmailsSentTodayCachesWithinWindow(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM email_log")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	first, err := s.EmailsSentToday(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, first)

	// Second call inside the window: identical integer, no second query.
	second, err := s.EmailsSentToday(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmailsSentTodayRecountsAfterInvalidation(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM email_log")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	first, err := s.EmailsSentToday(ctx)
	require.NoError(t, err)

	s.InvalidateCaches()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM email_log")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(13))
	second, err := s.EmailsSentToday(ctx)
	require.NoError(t, err)
	assert.Equal(t, first+1, second)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmailsSentTodayCountsFromLocalMidnight(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	// 22:00 local is already the next day in UTC; the recount must still
	// start at local midnight, the same boundary the cache key uses.
	loc := time.FixedZone("UTC-3", -3*60*60)
	s.now = func() time.Time { return time.Date(2026, 8, 31, 22, 0, 0, 0, loc) }

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM email_log")).
		WithArgs(time.Date(2026, 8, 31, 0, 0, 0, 0, loc)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))

	n, err := s.EmailsSentToday(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDailySendCountsBucketsByLocalDay(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	loc := time.FixedZone("UTC-3", -3*60*60)
	s.now = func() time.Time { return time.Date(2026, 8, 31, 12, 0, 0, 0, loc) }

	// 02:30 UTC on the 31st is still the evening of the 30th locally.
	rows := sqlmock.NewRows([]string{"sent_at"}).
		AddRow(time.Date(2026, 8, 31, 2, 30, 0, 0, time.UTC)).
		AddRow(time.Date(2026, 8, 31, 15, 0, 0, 0, time.UTC))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT sent_at FROM email_log")).
		WithArgs(time.Date(2026, 8, 24, 0, 0, 0, 0, loc)).
		WillReturnRows(rows)

	counts, err := s.DailySendCounts(ctx, 7)
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, time.Date(2026, 8, 30, 0, 0, 0, 0, loc), counts[0].Day)
	assert.Equal(t, 1, counts[0].Count)
	assert.Equal(t, time.Date(2026, 8, 31, 0, 0, 0, 0, loc), counts[1].Day)
	assert.Equal(t, 1, counts[1].Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFilterRecentlyContacted(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT LOWER(recipient) FROM email_log")).
		WillReturnRows(sqlmock.NewRows([]string{"lower"}).AddRow("a@x.com"))

	dupes, err := s.FilterRecentlyContacted(context.Background(),
		[]string{"A@x.com", "b@x.com"}, 180)
	require.NoError(t, err)
	assert.True(t, dupes["a@x.com"])
	assert.False(t, dupes["b@x.com"])
	assert.Len(t, dupes, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFilterRecentlyContactedEmptyInput(t *testing.T) {
	s, mock := newMockStore(t)
	dupes, err := s.FilterRecentlyContacted(context.Background(), nil, 180)
	require.NoError(t, err)
	assert.Empty(t, dupes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateEmailStatusSentFlow(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, lead_id, campaign_id, recipient FROM email_log")).
		WithArgs("log00001").
		WillReturnRows(sqlmock.NewRows([]string{"status", "lead_id", "campaign_id", "recipient"}).
			AddRow("pending", "lead0001", "camp0001", "contato@clinica.com.br"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE email_log")).
		WithArgs(string(domain.EmailSent), "msg-123", "", "log00001").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Lead moves queued → contacted.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE leads SET status")).
		WithArgs(string(domain.LeadContacted), "lead0001").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Campaign counters recomputed set-based.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE campaigns SET")).
		WithArgs("camp0001").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.UpdateEmailStatus(ctx, "log00001", domain.EmailSent, "msg-123", "")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateEmailStatusFailedFlow(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, lead_id, campaign_id, recipient FROM email_log")).
		WithArgs("log00001").
		WillReturnRows(sqlmock.NewRows([]string{"status", "lead_id", "campaign_id", "recipient"}).
			AddRow("pending", "lead0001", "camp0001", "contato@clinica.com.br"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE email_log")).
		WithArgs(string(domain.EmailFailed), "", "connection refused", "log00001").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Failed attempts do not touch the lead, only the counters.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE campaigns SET")).
		WithArgs("camp0001").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.UpdateEmailStatus(context.Background(), "log00001", domain.EmailFailed, "", "connection refused")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateEmailStatusBouncedProposesBlacklist(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, lead_id, campaign_id, recipient FROM email_log")).
		WithArgs("log00001").
		WillReturnRows(sqlmock.NewRows([]string{"status", "lead_id", "campaign_id", "recipient"}).
			AddRow("sent", "lead0001", "camp0001", "gone@clinica.com.br"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE email_log")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (email) DO NOTHING")).
		WithArgs(sqlmock.AnyArg(), "gone@clinica.com.br", "hard_bounce", "camp0001").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE campaigns SET")).
		WithArgs("camp0001").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.UpdateEmailStatus(context.Background(), "log00001", domain.EmailBounced, "", "550 user unknown")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateEmailStatusRepeatedSentIsNoOp(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	// Replaying sent → sent must not write anything or bump the daily
	// counter a second time for one real send.
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM email_log")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	before, err := s.EmailsSentToday(ctx)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, lead_id, campaign_id, recipient FROM email_log")).
		WithArgs("log00001").
		WillReturnRows(sqlmock.NewRows([]string{"status", "lead_id", "campaign_id", "recipient"}).
			AddRow("sent", "lead0001", "camp0001", "contato@clinica.com.br"))
	mock.ExpectRollback()

	require.NoError(t, s.UpdateEmailStatus(ctx, "log00001", domain.EmailSent, "msg-123", ""))

	after, err := s.EmailsSentToday(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateEmailStatusRejectsIllegalTransition(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, lead_id, campaign_id, recipient FROM email_log")).
		WithArgs("log00001").
		WillReturnRows(sqlmock.NewRows([]string{"status", "lead_id", "campaign_id", "recipient"}).
			AddRow("failed", "lead0001", "camp0001", "a@x.com"))
	mock.ExpectRollback()

	err := s.UpdateEmailStatus(context.Background(), "log00001", domain.EmailSent, "", "")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateLeadStatusRequiresDiscardReason(t *testing.T) {
	s, mock := newMockStore(t)
	err := s.UpdateLeadStatus(context.Background(), "lead0001", domain.LeadLost, "", false)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateLeadStatusValidTransition(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM leads")).
		WithArgs("lead0001").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("new"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE leads SET status")).
		WithArgs(string(domain.LeadQueued), "lead0001").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.UpdateLeadStatus(context.Background(), "lead0001", domain.LeadQueued, "", false))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateLeadStatusRejectsIllegalTransition(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM leads")).
		WithArgs("lead0001").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("converted"))

	err := s.UpdateLeadStatus(context.Background(), "lead0001", domain.LeadQueued, "", false)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSettingFallsBackToDefault(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM settings")).
		WithArgs(domain.SettingDailyEmailLimit).
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	v, err := s.GetSetting(context.Background(), domain.SettingDailyEmailLimit)
	require.NoError(t, err)
	assert.Equal(t, "20", v)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSettingPersistedOverridesDefault(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM settings")).
		WithArgs(domain.SettingDailyEmailLimit).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("50"))

	n, err := s.IntSetting(context.Background(), domain.SettingDailyEmailLimit, 20)
	require.NoError(t, err)
	assert.Equal(t, 50, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIntSettingUnparsableUsesFallback(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM settings")).
		WithArgs(domain.SettingDelayMean).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("ninety"))

	n, err := s.IntSetting(context.Background(), domain.SettingDelayMean, 90)
	require.NoError(t, err)
	assert.Equal(t, 90, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignSummaryNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, name").
		WithArgs("nope1234").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	sum, err := s.CampaignSummary(context.Background(), "nope1234")
	require.NoError(t, err)
	assert.Nil(t, sum)
}

func TestLeadsByCampaignOrdering(t *testing.T) {
	s, mock := newMockStore(t)

	now := time.Now()
	cols := []string{
		"id", "campaign_id", "status", "clinic_name", "address",
		"city_region", "cnpj", "website",
		"contact_name", "contact_role", "contact_linkedin",
		"email", "email_type", "phone", "whatsapp", "instagram", "source",
		"confidence", "score", "notes", "discard_reason", "insights",
		"raw_data", "created_at", "updated_at",
	}
	rows := sqlmock.NewRows(cols).
		AddRow("lead0001", "camp0001", "new", "Clínica A", "", "", "", "",
			"", "", "", "a@x.com", "nominal", "", "", "", "",
			"alta", 90, "", "", "", nil, now, now).
		AddRow("lead0002", "camp0001", "new", "Clínica B", "", "", "", "",
			"", "", "", "b@x.com", "cargo", "", "", "", "",
			"media", 70, "", "", "", nil, now, now)

	mock.ExpectQuery("ORDER BY score DESC, created_at, id").
		WithArgs("camp0001").
		WillReturnRows(rows)

	leads, err := s.LeadsByCampaign(context.Background(), "camp0001")
	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, 90, leads[0].Score)
	assert.Equal(t, "Clínica A", leads[0].ClinicName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordEmailEventRejectsUnknownType(t *testing.T) {
	s, mock := newMockStore(t)
	_, err := s.RecordEmailEvent(context.Background(), "log00001", domain.EventType("peeked"), nil)
	assert.True(t, IsConstraint(err, ConstraintCheck))
	assert.NoError(t, mock.ExpectationsWereMet())
}
