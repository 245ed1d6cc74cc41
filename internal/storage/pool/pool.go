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

// Package pool 管理有界的 Postgres 连接集合：显式 Init、Acquire/Release、Close
package pool

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/puddle/v2"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"

	"planet-ai/pkg/log"
	"planet-ai/pkg/metrics"
)

// State 连接池生命周期
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return "uninitialized"
	}
}

const (
	defaultAcquireTimeout = 5 * time.Second
	defaultConnectTimeout = 10 * time.Second
	destroyTimeout        = 5 * time.Second
)

// Connector 建立一条新连接
type Connector func(ctx context.Context, cc *pgx.ConnConfig) (Connection, error)

// PgxConnector 默认连接器，使用 pgx.ConnectConfig
func PgxConnector(ctx context.Context, cc *pgx.ConnConfig) (Connection, error) {
	return pgx.ConnectConfig(ctx, cc)
}

// Options 连接池构造选项
type Options struct {
	// Connect 为空时使用 PgxConnector
	Connect Connector
	Logger  *log.Logger
}

// InitConfig Init 参数
type InitConfig struct {
	DSN            string
	MinSize        int
	MaxSize        int
	AcquireTimeout time.Duration
	ConnectTimeout time.Duration
	// SSLMode 非空时覆盖 DSN 中的 sslmode
	SSLMode string
}

// Pool 进程级连接池
type Pool struct {
	connect Connector
	logger  *log.Logger
	group   singleflight.Group

	mu             sync.RWMutex
	state          State
	res            *puddle.Pool[Connection]
	minSize        int32
	acquireTimeout time.Duration
	connectTimeout time.Duration
}

// New 创建未初始化的连接池，不做任何 I/O
func New(opts Options) *Pool {
	if opts.Connect == nil {
		opts.Connect = PgxConnector
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	return &Pool{connect: opts.Connect, logger: opts.Logger}
}

// State 当前生命周期状态
func (p *Pool) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Init 建立连接池；已 ready 时直接返回。并发调用只有一个执行真正的初始化，其余等待其结果
func (p *Pool) Init(ctx context.Context, cfg InitConfig) error {
	switch p.State() {
	case StateReady:
		return nil
	case StateClosed:
		return ErrClosed
	}
	_, err, _ := p.group.Do("init", func() (any, error) {
		return nil, p.doInit(ctx, cfg)
	})
	return err
}

func (p *Pool) doInit(ctx context.Context, cfg InitConfig) error {
	p.mu.Lock()
	switch p.state {
	case StateReady:
		p.mu.Unlock()
		return nil
	case StateClosed:
		p.mu.Unlock()
		return ErrClosed
	}
	p.state = StateInitializing
	p.mu.Unlock()

	rp, minSize, err := p.build(ctx, cfg)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		if p.state == StateInitializing {
			p.state = StateUninitialized
		}
		return err
	}
	if p.state == StateClosed {
		go rp.Close()
		return ErrClosed
	}
	p.res = rp
	p.minSize = minSize
	p.acquireTimeout = orDefault(cfg.AcquireTimeout, defaultAcquireTimeout)
	p.connectTimeout = orDefault(cfg.ConnectTimeout, defaultConnectTimeout)
	p.state = StateReady
	p.logger.Info("连接池已就绪", "min_size", minSize, "max_size", rp.Stat().MaxResources())
	return nil
}

// build 解析配置、创建资源池并预热 min 条连接（至少一条以验证连通性）
func (p *Pool) build(ctx context.Context, cfg InitConfig) (*puddle.Pool[Connection], int32, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, 0, fmt.Errorf("%w: empty dsn", ErrConfigInvalid)
	}
	dsn := cfg.DSN
	if cfg.SSLMode != "" {
		dsn = withSSLMode(dsn, cfg.SSLMode)
	}
	parsed, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrConfigInvalid, err)
	}
	minSize, maxSize := int32(cfg.MinSize), int32(cfg.MaxSize)
	if maxSize == 0 {
		maxSize = parsed.MaxConns
	}
	if minSize == 0 {
		minSize = parsed.MinConns
	}
	if minSize < 0 || maxSize < 1 || minSize > maxSize {
		return nil, 0, fmt.Errorf("%w: min_size=%d max_size=%d", ErrConfigInvalid, minSize, maxSize)
	}

	connCfg := parsed.ConnConfig
	connectTimeout := orDefault(cfg.ConnectTimeout, defaultConnectTimeout)
	rp, err := puddle.NewPool(&puddle.Config[Connection]{
		Constructor: func(ctx context.Context) (Connection, error) {
			ctx, cancel := context.WithTimeout(ctx, connectTimeout)
			defer cancel()
			return p.connect(ctx, connCfg.Copy())
		},
		Destructor: func(c Connection) {
			ctx, cancel := context.WithTimeout(context.Background(), destroyTimeout)
			defer cancel()
			_ = c.Close(ctx)
		},
		MaxSize: maxSize,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrConfigInvalid, err)
	}

	warm := max(minSize, 1)
	for i := int32(0); i < warm; i++ {
		if err := rp.CreateResource(ctx); err != nil {
			rp.Close()
			return nil, 0, fmt.Errorf("%w: %w", ErrConnectFailed, err)
		}
	}
	return rp, minSize, nil
}

// Acquire 借出一条连接；只阻塞当前调用方，超过 AcquireTimeout 返回 ErrTimeout
func (p *Pool) Acquire(ctx context.Context) (*Conn, error) {
	p.mu.RLock()
	state, rp, timeout := p.state, p.res, p.acquireTimeout
	p.mu.RUnlock()

	switch state {
	case StateClosed:
		return nil, ErrClosed
	case StateReady:
	default:
		return nil, ErrNotInitialized
	}

	start := time.Now()
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	for {
		res, err := rp.Acquire(actx)
		if err != nil {
			err = p.acquireError(ctx, err)
			metrics.PoolAcquireDuration.WithLabelValues(acquireOutcome(err)).Observe(time.Since(start).Seconds())
			return nil, err
		}
		// 空闲期间已断开的连接直接丢弃
		if res.Value().IsClosed() {
			res.Destroy()
			continue
		}
		metrics.PoolAcquireDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
		return &Conn{res: res, pool: p}, nil
	}
}

func (p *Pool) acquireError(parent context.Context, err error) error {
	switch {
	case errors.Is(err, puddle.ErrClosedPool):
		return ErrClosed
	case parent.Err() != nil:
		return parent.Err()
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout
	}
	if p.State() == StateClosed {
		return ErrClosed
	}
	return fmt.Errorf("pool: acquire: %w", err)
}

func acquireOutcome(err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrClosed):
		return "closed"
	default:
		return "error"
	}
}

// replenish 在后台补充一条连接，池满或已关闭时忽略
func (p *Pool) replenish() {
	p.mu.RLock()
	state, rp, timeout := p.state, p.res, p.connectTimeout
	p.mu.RUnlock()
	if state != StateReady {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		err := rp.CreateResource(ctx)
		if err != nil && !errors.Is(err, puddle.ErrNotAvailable) && !errors.Is(err, puddle.ErrClosedPool) {
			p.logger.Warn("补充连接失败", "error", err)
		}
	}()
}

// Close 关闭连接池：销毁空闲连接，借出中的连接在 Release 时销毁。重复调用无副作用
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.state == StateClosed {
		p.mu.Unlock()
		return nil
	}
	rp := p.res
	p.state = StateClosed
	p.mu.Unlock()

	if rp == nil {
		return nil
	}
	// puddle.Close 会等待所有连接（包括借出的）销毁完毕，
	// 无借出连接时同步等待，否则先销毁空闲连接再在后台等待归还
	if rp.Stat().AcquiredResources() == 0 {
		rp.Close()
	} else {
		for _, res := range rp.AcquireAllIdle() {
			res.Destroy()
		}
		go rp.Close()
	}
	p.logger.Info("连接池已关闭")
	return nil
}

// Stat 连接计数快照；未就绪时返回 nil
func (p *Pool) Stat() *Stat {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.res == nil || p.state != StateReady {
		return nil
	}
	return &Stat{s: p.res.Stat()}
}

// Collector 供 Prometheus 注册的连接池 gauge
func (p *Pool) Collector() prometheus.Collector {
	return metrics.NewPoolCollector(func() metrics.PoolStats {
		if s := p.Stat(); s != nil {
			return s
		}
		return nil
	})
}

// Stat 连接池统计
type Stat struct {
	s *puddle.Stat
}

func (s *Stat) AcquiredConns() int32 { return s.s.AcquiredResources() }
func (s *Stat) IdleConns() int32     { return s.s.IdleResources() }
func (s *Stat) TotalConns() int32    { return s.s.TotalResources() }
func (s *Stat) MaxConns() int32      { return s.s.MaxResources() }

// withSSLMode 用给定 sslmode 覆盖 DSN 中的设置，支持 URL 与 key=value 两种形式
func withSSLMode(dsn, mode string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return dsn
		}
		q := u.Query()
		q.Set("sslmode", mode)
		u.RawQuery = q.Encode()
		return u.String()
	}
	return strings.TrimSpace(dsn) + " sslmode=" + mode
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
