package services

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrReportNotFound  = errors.New("report not found")
	ErrReportTarget    = errors.New("reported item does not exist")
	ErrAlreadyBlocked  = errors.New("user already blocked")
	ErrSelfBlock       = errors.New("cannot block yourself")
	ErrContentRejected = errors.New("content does not meet our guidelines")
)

var BannedWords = []string{
	"fuck", "fucking", "shit", "bullshit",
	"asshole", "bastard", "bitch", "cunt",
	"nigger", "nigga", "faggot", "retard",
	"porn", "nude", "nudes",
	"scam", "scammer", "phishing", "malware",
}

var rejectionMessages = map[string]string{
	"inappropriate_language":   "Your text contains inappropriate language.",
	"url_not_allowed":          "Links are not allowed here.",
	"contact_info_not_allowed": "Please keep contact details in chat, not in public text.",
	"spam_detected":            "Your text looks like spam.",
	"excessive_caps":           "Please avoid excessive capital letters.",
}

// ModerationService holds the public-text filter, user reports and blocks.
type ModerationService struct {
	db          *gorm.DB
	banned      []*regexp.Regexp
	urlRe       *regexp.Regexp
	emailRe     *regexp.Regexp
	phoneRe     *regexp.Regexp
	allCapsRe   *regexp.Regexp
	repeatLimit int
}

func NewModerationService(db *gorm.DB) *ModerationService {
	ms := &ModerationService{
		db:          db,
		urlRe:       regexp.MustCompile(`(?i)(https?://\S+|www\.\S+\.\S+)`),
		emailRe:     regexp.MustCompile(`(?i)\b[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}\b`),
		phoneRe:     regexp.MustCompile(`(\+?\d[\d\s-]{8,}\d)`),
		allCapsRe:   regexp.MustCompile(`\b[A-Z]{5,}\b`),
		repeatLimit: 4,
	}
	for _, word := range BannedWords {
		ms.banned = append(ms.banned, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(word)+`\b`))
	}
	return ms
}

// FilterContent reports whether text may be published, and the rejection
// reason when it may not.
func (ms *ModerationService) FilterContent(text string) (bool, string) {
	return ms.filter(text, true)
}

// filter runs the language and spam rules. Public text also may not carry
// links, contact details or shouting.
func (ms *ModerationService) filter(text string, public bool) (bool, string) {
	if strings.TrimSpace(text) == "" {
		return true, ""
	}
	for _, re := range ms.banned {
		if re.MatchString(text) {
			return false, "inappropriate_language"
		}
	}
	if public && ms.urlRe.MatchString(text) {
		return false, "url_not_allowed"
	}
	if public && (ms.emailRe.MatchString(text) || ms.phoneRe.MatchString(text)) {
		return false, "contact_info_not_allowed"
	}
	if hasRun(text, ms.repeatLimit) {
		return false, "spam_detected"
	}
	if public && len(ms.allCapsRe.FindAllString(text, -1)) > 2 {
		return false, "excessive_caps"
	}
	return true, ""
}

// hasRun reports whether any letter or punctuation mark repeats n times in a row.
func hasRun(text string, n int) bool {
	var prev rune
	count := 0
	for _, r := range strings.ToLower(text) {
		if r == prev && r != ' ' && (r < '0' || r > '9') {
			count++
			if count >= n {
				return true
			}
			continue
		}
		prev, count = r, 1
	}
	return false
}

func (ms *ModerationService) RejectionMessage(reason string) string {
	if msg, ok := rejectionMessages[reason]; ok {
		return msg
	}
	return ErrContentRejected.Error()
}

// Check returns a user-facing error when text fails the filter.
func (ms *ModerationService) Check(text string) error {
	if ok, reason := ms.FilterContent(text); !ok {
		return fmt.Errorf("%w: %s", ErrContentRejected, ms.RejectionMessage(reason))
	}
	return nil
}

// CheckMessage filters a private chat message. Buyers and sellers may
// swap phone numbers and links there.
func (ms *ModerationService) CheckMessage(text string) error {
	if ok, reason := ms.filter(text, false); !ok {
		return fmt.Errorf("%w: %s", ErrContentRejected, ms.RejectionMessage(reason))
	}
	return nil
}

func (ms *ModerationService) targetExists(targetType string, id uuid.UUID) (bool, error) {
	var model interface{}
	switch targetType {
	case models.ReportTargetProduct:
		model = &models.Product{}
	case models.ReportTargetReview:
		model = &models.Review{}
	case models.ReportTargetUser:
		model = &models.User{}
	case models.ReportTargetMessage:
		model = &models.Message{}
	default:
		return false, nil
	}
	var n int64
	err := ms.db.Model(model).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

func (ms *ModerationService) CreateReport(reporterID uuid.UUID, req *dto.CreateReportRequest) (*models.Report, error) {
	exists, err := ms.targetExists(req.TargetType, req.TargetID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrReportTarget
	}

	report := models.Report{
		ID:         uuid.New(),
		ReporterID: reporterID,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		Reason:     strings.TrimSpace(req.Reason),
		Status:     models.ReportPending,
	}
	if err := ms.db.Create(&report).Error; err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}
	return &report, nil
}

func (ms *ModerationService) ListReports(status string, q dto.PageQuery) ([]models.Report, int64, error) {
	var reports []models.Report
	var total int64

	query := ms.db.Model(&models.Report{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("created_at DESC").Scopes(paginate(q)).Find(&reports).Error; err != nil {
		return nil, 0, err
	}
	return reports, total, nil
}

func (ms *ModerationService) ActionReport(reportID uuid.UUID, req *dto.ActionReportRequest) (*models.Report, error) {
	var report models.Report
	if err := ms.db.First(&report, "id = ?", reportID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}

	if err := ms.db.Model(&report).Updates(map[string]interface{}{
		"status":     req.Status,
		"admin_note": req.AdminNote,
	}).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

func (ms *ModerationService) BlockUser(blockerID, blockedID uuid.UUID) error {
	if blockerID == blockedID {
		return ErrSelfBlock
	}

	var n int64
	if err := ms.db.Model(&models.User{}).Where("id = ?", blockedID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}

	res := ms.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.Block{
		ID:        uuid.New(),
		BlockerID: blockerID,
		BlockedID: blockedID,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyBlocked
	}
	return nil
}

func (ms *ModerationService) UnblockUser(blockerID, blockedID uuid.UUID) error {
	return ms.db.Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&models.Block{}).Error
}

// IsBlocked reports whether blocker has blocked blocked.
func (ms *ModerationService) IsBlocked(blocker, blocked uuid.UUID) (bool, error) {
	var n int64
	err := ms.db.Model(&models.Block{}).
		Where("blocker_id = ? AND blocked_id = ?", blocker, blocked).
		Count(&n).Error
	return n > 0, err
}

func (ms *ModerationService) BlockedIDs(userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := ms.db.Model(&models.Block{}).Where("blocker_id = ?", userID).Pluck("blocked_id", &ids).Error
	return ids, err
}
