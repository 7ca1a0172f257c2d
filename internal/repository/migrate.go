package repository

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

var (
	// UsersColumns holds the columns for the "users" table.
	UsersColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt64, Increment: true},
		{Name: "username", Type: field.TypeString, Unique: true, Size: 150},
		{Name: "email", Type: field.TypeString, Unique: true, Size: 255},
		{Name: "hashed_password", Type: field.TypeString},
		{Name: "is_active", Type: field.TypeBool, Default: true},
		{Name: "created_at", Type: field.TypeTime},
	}
	// UsersTable holds the schema information for the "users" table.
	UsersTable = &schema.Table{
		Name:       "users",
		Columns:    UsersColumns,
		PrimaryKey: []*schema.Column{UsersColumns[0]},
	}

	// OrdersColumns holds the columns for the "orders" table.
	OrdersColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt64, Increment: true},
		{Name: "first_name", Type: field.TypeString},
		{Name: "last_name", Type: field.TypeString},
		{Name: "date_of_birth", Type: field.TypeTime, SchemaType: map[string]string{dialect.Postgres: "date", dialect.SQLite: "date"}},
		{Name: "source_filename", Type: field.TypeString, Nullable: true},
		{Name: "source_sha256", Type: field.TypeString, Nullable: true, Size: 64},
		{Name: "extraction_method", Type: field.TypeString, Nullable: true, Size: 16},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
		{Name: "created_by_user_id", Type: field.TypeInt64, Nullable: true},
	}
	// OrdersTable holds the schema information for the "orders" table.
	OrdersTable = &schema.Table{
		Name:       "orders",
		Columns:    OrdersColumns,
		PrimaryKey: []*schema.Column{OrdersColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "orders_users_orders",
				Columns:    []*schema.Column{OrdersColumns[9]},
				RefColumns: []*schema.Column{UsersColumns[0]},
				OnDelete:   schema.SetNull,
			},
		},
		Indexes: []*schema.Index{
			{Name: "order_last_name_first_name", Columns: []*schema.Column{OrdersColumns[2], OrdersColumns[1]}},
			{Name: "order_source_sha256", Columns: []*schema.Column{OrdersColumns[5]}},
		},
	}

	// ActivityLogsColumns holds the columns for the "activity_logs" table.
	ActivityLogsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt64, Increment: true},
		{Name: "request_id", Type: field.TypeString, Size: 64},
		{Name: "method", Type: field.TypeString, Size: 16},
		{Name: "endpoint", Type: field.TypeString, Size: 2048},
		{Name: "status_code", Type: field.TypeInt},
		{Name: "request_body", Type: field.TypeString, Nullable: true, Size: 2147483647},
		{Name: "response_body", Type: field.TypeString, Nullable: true, Size: 2147483647},
		{Name: "ip_address", Type: field.TypeString, Nullable: true},
		{Name: "user_agent", Type: field.TypeString, Nullable: true, Size: 1024},
		{Name: "duration_ms", Type: field.TypeInt64},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "user_id", Type: field.TypeInt64, Nullable: true},
	}
	// ActivityLogsTable holds the schema information for the "activity_logs" table.
	ActivityLogsTable = &schema.Table{
		Name:       "activity_logs",
		Columns:    ActivityLogsColumns,
		PrimaryKey: []*schema.Column{ActivityLogsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "activity_logs_users_activity",
				Columns:    []*schema.Column{ActivityLogsColumns[11]},
				RefColumns: []*schema.Column{UsersColumns[0]},
				OnDelete:   schema.SetNull,
			},
		},
		Indexes: []*schema.Index{
			{Name: "activitylog_created_at", Columns: []*schema.Column{ActivityLogsColumns[10]}},
		},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		UsersTable,
		OrdersTable,
		ActivityLogsTable,
	}
)

func init() {
	OrdersTable.ForeignKeys[0].RefTable = UsersTable
	ActivityLogsTable.ForeignKeys[0].RefTable = UsersTable
}

// Migrate creates missing tables, columns and indexes. It never drops anything.
func (d *DB) Migrate(ctx context.Context) error {
	m, err := schema.NewMigrate(d.drv, schema.WithForeignKeys(true))
	if err != nil {
		return fmt.Errorf("init migration: %w", err)
	}
	if err := m.Create(ctx, Tables...); err != nil {
		d.logger.Error("schema migration failed", "error", err)
		return fmt.Errorf("migrate schema: %w", err)
	}
	d.logger.Info("schema migrated", "tables", len(Tables))
	return nil
}
