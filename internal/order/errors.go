package order

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

var (
	ErrNotFound         = errors.New("order not found")
	ErrTableNotFound    = errors.New("order table does not exist")
	ErrPermissionDenied = errors.New("order store permission denied")
	ErrInvalidOrder     = errors.New("invalid order")
)

// MySQL server error numbers.
const (
	mysqlNoSuchTable      = 1146
	mysqlTableAccessDeny  = 1142
	mysqlDBAccessDenied   = 1044
	mysqlUserAccessDenied = 1045
)

// classify wraps driver errors into the store's failure classes so callers
// can branch with errors.Is without knowing the dialect.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}

	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlNoSuchTable:
			return fmt.Errorf("%w: %v", ErrTableNotFound, err)
		case mysqlTableAccessDeny, mysqlDBAccessDenied, mysqlUserAccessDenied:
			return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		return err
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no such table"),
		strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist"):
		return fmt.Errorf("%w: %v", ErrTableNotFound, err)
	case strings.Contains(msg, "permission denied"),
		strings.Contains(msg, "42501"),
		strings.Contains(msg, "readonly database"):
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	return err
}
