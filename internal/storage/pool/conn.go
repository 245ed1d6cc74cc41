// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pool

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/puddle/v2"
)

// Connection 池中管理的底层连接，*pgx.Conn 满足该接口
type Connection interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	IsClosed() bool
	Close(ctx context.Context) error
}

// Conn 从连接池借出的连接；使用完毕必须调用 Release
type Conn struct {
	res  *puddle.Resource[Connection]
	pool *Pool
	once sync.Once
}

// Exec 执行不返回行的语句
func (c *Conn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return c.res.Value().Exec(ctx, sql, args...)
}

// Query 执行查询
func (c *Conn) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return c.res.Value().Query(ctx, sql, args...)
}

// QueryRow 执行单行查询
func (c *Conn) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return c.res.Value().QueryRow(ctx, sql, args...)
}

// Raw 返回底层连接
func (c *Conn) Raw() Connection {
	return c.res.Value()
}

// Release 归还连接；已断开的连接会被销毁并在后台补充新连接。重复调用无副作用
func (c *Conn) Release() {
	c.once.Do(func() {
		if c.res.Value().IsClosed() {
			c.res.Destroy()
			c.pool.replenish()
			return
		}
		if c.pool.State() == StateClosed {
			c.res.Destroy()
			return
		}
		c.res.Release()
	})
}
