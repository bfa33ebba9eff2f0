package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/simplebot-org/simplebot-corpse/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) *GameService {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Session{}, &models.Player{}))

	return NewGameService(db, NewDirectory(nil))
}

func currentSession(t *testing.T, s *GameService, chatID int64) *models.Session {
	t.Helper()
	session, err := loadSession(s.db, chatID)
	require.NoError(t, err)
	return session
}
