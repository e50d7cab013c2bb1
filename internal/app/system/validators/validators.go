// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	accountstore "github.com/dalemusser/alcancia/internal/app/store/accounts"
	contributionstore "github.com/dalemusser/alcancia/internal/app/store/contributions"
	goalstore "github.com/dalemusser/alcancia/internal/app/store/goals"
	groupgoalstore "github.com/dalemusser/alcancia/internal/app/store/groupgoals"
	groupstore "github.com/dalemusser/alcancia/internal/app/store/groups"
	invitationstore "github.com/dalemusser/alcancia/internal/app/store/invitations"
	membershipstore "github.com/dalemusser/alcancia/internal/app/store/memberships"
	transactionstore "github.com/dalemusser/alcancia/internal/app/store/transactions"
	userstore "github.com/dalemusser/alcancia/internal/app/store/users"
	"github.com/dalemusser/alcancia/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
//
// Money fields must be decimal so a stray double can never enter a balance.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure(userstore.Collection, usersSchema())
	ensure(accountstore.Collection, accountsSchema())
	ensure(transactionstore.Collection, transactionsSchema())
	ensure(goalstore.Collection, goalsSchema(false))
	ensure(groupstore.Collection, groupsSchema())
	ensure(membershipstore.Collection, membershipsSchema())
	ensure(groupgoalstore.Collection, goalsSchema(true))
	ensure(contributionstore.Collection, contributionsSchema())
	ensure(invitationstore.Collection, invitationsSchema())

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Debug("collection exists", zap.String("collection", name))
		return false, nil
	}
	if err := db.CreateCollection(ctx, name); err != nil {
		if isNamespaceExistsErr(err) {
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func commandCode(err error) (int32, string, bool) {
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		return ce.Code, strings.ToLower(ce.Message), true
	}
	return 0, "", false
}

func isNamespaceExistsErr(err error) bool {
	if code, msg, ok := commandCode(err); ok && (code == 48 || strings.Contains(msg, "already exists")) {
		return true
	}
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "already exists")
}

func isNoSuchCommand(err error) bool {
	if code, msg, ok := commandCode(err); ok && (code == 59 || strings.Contains(msg, "no such command")) {
		return true
	}
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if code, msg, ok := commandCode(err); ok && (code == 115 ||
		strings.Contains(msg, "not implemented") || strings.Contains(msg, "not supported")) {
		return true
	}
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var (
	nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}
	decimal  = bson.M{"bsonType": "decimal"}
	date     = bson.M{"bsonType": "date"}
	str      = bson.M{"bsonType": "string"}
)

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"tag", "name", "created_at"},
			"properties": bson.M{
				"tag":        bson.M{"bsonType": "string", "pattern": "^@[a-z0-9]+$"},
				"name":       nonBlank,
				"email":      str,
				"created_at": date,
			},
		},
	}
}

func accountsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"balance", "currency_code", "owner_user_id", "version"},
			"properties": bson.M{
				"balance":       decimal,
				"currency_code": nonBlank,
				"owner_user_id": nonBlank,
				"version":       bson.M{"bsonType": "long"},
			},
		},
	}
}

func transactionsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"account_id", "type", "amount", "created_at"},
			"properties": bson.M{
				"account_id": nonBlank,
				"type":       bson.M{"enum": bson.A{models.TransactionIngreso, models.TransactionGasto}},
				"amount":     decimal,
				"created_at": date,
			},
		},
	}
}

func goalsSchema(group bool) bson.M {
	owner := "owner_user_id"
	if group {
		owner = "group_id"
	}
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "target_amount", "current_amount", "completed", owner, "version"},
			"properties": bson.M{
				"name":           nonBlank,
				"target_amount":  decimal,
				"current_amount": decimal,
				"completed":      bson.M{"bsonType": "bool"},
				owner:            nonBlank,
				"version":        bson.M{"bsonType": "long"},
			},
		},
	}
}

func groupsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "tag", "created_by_user_id"},
			"properties": bson.M{
				"name":               nonBlank,
				"tag":                bson.M{"bsonType": "string", "pattern": "^[A-Z0-9]{6}$"},
				"created_by_user_id": nonBlank,
			},
		},
	}
}

func membershipsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"group_id", "user_id", "role", "joined_at"},
			"properties": bson.M{
				"group_id":  nonBlank,
				"user_id":   nonBlank,
				"role":      bson.M{"enum": bson.A{models.RoleAdmin, models.RoleMember}},
				"joined_at": date,
			},
		},
	}
}

func contributionsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"group_goal_id", "group_id", "user_id", "amount", "created_at"},
			"properties": bson.M{
				"group_goal_id": nonBlank,
				"group_id":      nonBlank,
				"user_id":       nonBlank,
				"amount":        decimal,
				"created_at":    date,
			},
		},
	}
}

func invitationsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"group_id", "invited_by_user_id", "invited_user_id", "status", "expires_at"},
			"properties": bson.M{
				"group_id":           nonBlank,
				"invited_by_user_id": nonBlank,
				"invited_user_id":    nonBlank,
				"status": bson.M{"enum": bson.A{
					models.InvitationPendiente, models.InvitationAceptada,
					models.InvitationRechazada, models.InvitationExpirada,
				}},
				"expires_at": date,
			},
		},
	}
}
