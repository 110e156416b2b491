package realtime

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const commitCallback = "gorm:commit_or_rollback_transaction"

// RegisterCallbacks publishes a ChangeEvent after every committed create, update or
// delete on one of the given tables, so writes made through GORM show up on the feed
// the same way the hosted database's replication stream reports them.
//
// GORM has no commit hook for a caller-managed transaction. Writes inside one are held
// until it commits when it was opened with Transaction, and are not published at all
// when it was opened with a plain db.Transaction.
func RegisterCallbacks(db *gorm.DB, pub Publisher, tables ...string) error {
	watched := make(map[string]bool, len(tables))
	for _, t := range tables {
		watched[t] = true
	}

	cb := db.Callback()
	if err := cb.Create().After(commitCallback).Register("realtime:after_create", publishChange(pub, watched, EventInsert)); err != nil {
		return err
	}
	if err := cb.Update().After(commitCallback).Register("realtime:after_update", publishChange(pub, watched, EventUpdate)); err != nil {
		return err
	}
	return cb.Delete().After(commitCallback).Register("realtime:after_delete", publishChange(pub, watched, EventDelete))
}

func publishChange(pub Publisher, watched map[string]bool, eventType string) func(*gorm.DB) {
	return func(tx *gorm.DB) {
		if tx.Error != nil || tx.RowsAffected == 0 {
			return
		}
		table := tx.Statement.Table
		if !watched[table] {
			return
		}
		ev := ChangeEvent{
			Schema:   DefaultSchema,
			Table:    table,
			Type:     eventType,
			RecordID: recordID(tx),
		}
		if _, inTx := tx.Statement.ConnPool.(gorm.TxCommitter); inTx {
			d, ok := tx.Statement.Context.Value(deferredKey{}).(*deferred)
			if !ok {
				log.Warn().Str("table", table).Str("type", eventType).
					Msg("realtime: change inside an untracked transaction not published")
				return
			}
			d.add(pub, ev)
			return
		}
		publish(tx.Statement.Context, pub, ev)
	}
}

func publish(ctx context.Context, pub Publisher, ev ChangeEvent) {
	if err := pub.Publish(ctx, ev); err != nil {
		log.Warn().Err(err).Str("table", ev.Table).Str("type", ev.Type).Msg("realtime: publish failed")
	}
}

type deferredKey struct{}

type deferredEvent struct {
	pub Publisher
	ev  ChangeEvent
}

type deferred struct {
	mu     sync.Mutex
	events []deferredEvent
}

func (d *deferred) add(pub Publisher, ev ChangeEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, deferredEvent{pub: pub, ev: ev})
}

// Transaction runs fn in a database transaction and publishes the changes it made to
// watched tables once the transaction has committed. Nothing is published on rollback.
// fn must issue its statements through the tx it is given.
func Transaction(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	d := &deferred{}
	if err := db.WithContext(context.WithValue(ctx, deferredKey{}, d)).Transaction(fn); err != nil {
		return err
	}
	d.mu.Lock()
	events := d.events
	d.events = nil
	d.mu.Unlock()
	for _, e := range events {
		publish(ctx, e.pub, e.ev)
	}
	return nil
}

func recordID(tx *gorm.DB) string {
	st := tx.Statement
	if st.Schema == nil || st.Schema.PrioritizedPrimaryField == nil {
		return ""
	}
	rv := st.ReflectValue
	for rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return ""
	}
	v, zero := st.Schema.PrioritizedPrimaryField.ValueOf(st.Context, rv)
	if zero {
		return ""
	}
	return fmt.Sprint(v)
}
