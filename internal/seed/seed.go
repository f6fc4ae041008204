// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"greenline/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configures the seeder.
type Options struct {
	NumUsers        int
	NumGroups       int
	MessagesPerConv int
	ShouldClean     bool
}

// DefaultPassword is the password every seeded user gets.
const DefaultPassword = "greenline-dev"

var groupNames = []string{
	"Field Ops", "Permitting", "Lab Results", "Site Assessments",
	"Remediation", "Compliance", "Wetlands", "Air Quality",
	"Groundwater", "Stormwater", "Client Liaison", "Report Review",
}

var titles = []string{
	"Environmental Analyst", "Field Technician", "Project Manager",
	"Hydrogeologist", "Compliance Officer", "Lab Coordinator",
	"GIS Specialist", "Remediation Engineer",
}

// Seed populates the database with development data: users, groups with
// owners and members, and direct plus group conversations with message
// history and read cursors.
func Seed(db *gorm.DB, opts Options) error {
	slog.Info("seeding database", "users", opts.NumUsers, "groups", opts.NumGroups)
	gofakeit.Seed(time.Now().UnixNano())

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			slog.Warn("could not clear all existing data, continuing", "error", err)
		}
	}

	users, err := seedUsers(db, opts.NumUsers)
	if err != nil {
		return fmt.Errorf("seed users: %w", err)
	}

	groups, err := seedGroups(db, users, opts.NumGroups)
	if err != nil {
		return fmt.Errorf("seed groups: %w", err)
	}

	perConv := opts.MessagesPerConv
	if perConv <= 0 {
		perConv = 12
	}

	if err := seedDirectConversations(db, users, perConv); err != nil {
		return fmt.Errorf("seed direct conversations: %w", err)
	}
	if err := seedGroupConversations(db, groups, perConv); err != nil {
		return fmt.Errorf("seed group conversations: %w", err)
	}

	slog.Info("seeding complete")
	return nil
}

func clearData(db *gorm.DB) error {
	tables := []string{
		"conversation_reads", "messages", "conversations",
		"group_members", "groups", "users",
	}
	for _, table := range tables {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return err
		}
	}
	return nil
}

func seedUsers(db *gorm.DB, n int) ([]*models.User, error) {
	if n <= 0 {
		n = 20
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0, n)
	for i := 0; i < n; i++ {
		first := gofakeit.FirstName()
		last := gofakeit.LastName()
		user := &models.User{
			Username: fmt.Sprintf("%s.%s%d", first, last, i),
			Email:    fmt.Sprintf("%s.%s%d@greenline.test", first, last, i),
			Password: string(hash),
			FullName: first + " " + last,
			Title:    titles[rand.Intn(len(titles))],
			Active:   true,
		}
		if err := db.Create(user).Error; err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func seedGroups(db *gorm.DB, users []*models.User, n int) ([]*models.Group, error) {
	if n <= 0 {
		n = 6
	}
	if n > len(groupNames) {
		n = len(groupNames)
	}

	groups := make([]*models.Group, 0, n)
	for i := 0; i < n; i++ {
		owner := users[rand.Intn(len(users))]
		group := &models.Group{
			Name:        groupNames[i],
			Description: gofakeit.Sentence(8),
			CreatedBy:   owner.ID,
			Members: []models.GroupMember{
				{UserID: owner.ID, Role: models.RoleOwner, JoinedAt: time.Now()},
			},
		}
		if err := db.Create(group).Error; err != nil {
			return nil, err
		}

		// Add a handful of random members
		memberCount := 3 + rand.Intn(5)
		for j := 0; j < memberCount; j++ {
			u := users[rand.Intn(len(users))]
			if u.ID == owner.ID {
				continue
			}
			member := &models.GroupMember{
				GroupID:  group.ID,
				UserID:   u.ID,
				Role:     models.RoleMember,
				JoinedAt: time.Now(),
			}
			// Ignore duplicates from random collisions
			_ = db.Where("group_id = ? AND user_id = ?", group.ID, u.ID).
				FirstOrCreate(member).Error
		}
		groups = append(groups, group)
	}
	return groups, nil
}

func seedDirectConversations(db *gorm.DB, users []*models.User, perConv int) error {
	pairs := len(users) / 2
	for i := 0; i < pairs; i++ {
		a, b := users[2*i], users[2*i+1]
		pairKey := models.DirectPairKey(a.ID, b.ID)
		conv := &models.Conversation{
			Type:      models.ConversationDirect,
			UserOneID: &a.ID,
			UserTwoID: &b.ID,
			PairKey:   &pairKey,
		}
		if err := db.Create(conv).Error; err != nil {
			return err
		}
		if err := seedMessages(db, conv, []uint{a.ID, b.ID}, perConv); err != nil {
			return err
		}
	}
	return nil
}

func seedGroupConversations(db *gorm.DB, groups []*models.Group, perConv int) error {
	for _, group := range groups {
		groupID := group.ID
		conv := &models.Conversation{
			Type:    models.ConversationGroup,
			GroupID: &groupID,
		}
		if err := db.Create(conv).Error; err != nil {
			return err
		}

		senderIDs := make([]uint, 0, len(group.Members))
		for _, m := range group.Members {
			senderIDs = append(senderIDs, m.UserID)
		}
		if err := seedMessages(db, conv, senderIDs, perConv); err != nil {
			return err
		}
	}
	return nil
}

func seedMessages(db *gorm.DB, conv *models.Conversation, senderIDs []uint, n int) error {
	if len(senderIDs) == 0 {
		return nil
	}

	start := time.Now().Add(-time.Duration(n) * time.Minute)
	var last time.Time
	for i := 0; i < n; i++ {
		created := start.Add(time.Duration(i) * time.Minute)
		msg := &models.Message{
			ConversationID: conv.ID,
			SenderID:       senderIDs[rand.Intn(len(senderIDs))],
			Content:        gofakeit.Sentence(4 + rand.Intn(10)),
			CreatedAt:      created,
		}
		if err := db.Create(msg).Error; err != nil {
			return err
		}
		last = created
	}

	// Keep the conversation ordered by real activity
	return db.Model(conv).Update("updated_at", last).Error
}
