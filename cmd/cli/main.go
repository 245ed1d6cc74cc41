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

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"planet-ai/internal/app"
	"planet-ai/internal/reconcile"
	"planet-ai/pkg/config"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "planet",
		Usage: "Planet AI 运维与调试命令行",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api-url",
				Usage:   "API 服务地址",
				EnvVars: []string{"PLANET_API_URL"},
				Value:   defaultAPIURL,
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "单次请求超时",
				Value: 2 * time.Minute,
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "配置文件路径（reconcile 使用）",
				EnvVars: []string{"PLANET_CONFIG"},
				Value:   config.DefaultConfigPath,
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "upload",
				Usage:     "上传 PDF 并打印抽取文本",
				ArgsUsage: "<file.pdf>",
				Action:    uploadCommand,
			},
			{
				Name:   "ask",
				Usage:  "基于文本提问",
				Action: askCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "text", Usage: "上下文文本"},
					&cli.StringFlag{Name: "text-file", Usage: "从文件读取上下文文本"},
					&cli.StringFlag{Name: "question", Aliases: []string{"q"}, Usage: "问题", Required: true},
				},
			},
			{
				Name:   "health",
				Usage:  "查询服务与连接池状态",
				Action: healthCommand,
			},
			{
				Name:   "documents",
				Usage:  "分页列出已入库文档",
				Action: documentsCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "offset", Value: 0},
					&cli.IntFlag{Name: "limit", Value: 50},
				},
			},
			{
				Name:   "reconcile",
				Usage:  "列出对象存储中没有元数据行的孤儿对象",
				Action: reconcileCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "delete", Usage: "删除找到的孤儿对象"},
					&cli.DurationFlag{Name: "grace", Usage: "跳过比该时长更新的对象", Value: time.Hour},
					&cli.StringFlag{Name: "prefix", Usage: "对象键前缀，默认取 storage.object.prefix"},
				},
			},
		},
	}
}

func clientFrom(c *cli.Context) *apiClient {
	return newClient(c.String("api-url"), c.Duration("timeout"))
}

func uploadCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("usage: planet upload <file.pdf>")
	}
	path := c.Args().First()
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("读取文件失败: %w", err)
	}
	res, err := clientFrom(c).upload(filepath.Base(path), data)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, prettyJSON(res))
	return nil
}

func askCommand(c *cli.Context) error {
	text := c.String("text")
	if f := c.String("text-file"); f != "" {
		b, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("读取文本失败: %w", err)
		}
		text = string(b)
	}
	answer, err := clientFrom(c).ask(askRequest{ExtractedText: text, Question: c.String("question")})
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, answer)
	return nil
}

func healthCommand(c *cli.Context) error {
	out, err := clientFrom(c).health()
	if out != nil {
		fmt.Fprintln(c.App.Writer, prettyJSON(out))
	}
	return err
}

func documentsCommand(c *cli.Context) error {
	out, err := clientFrom(c).listDocuments(c.Int("offset"), c.Int("limit"))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, prettyJSON(out))
	return nil
}

func reconcileCommand(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	b, err := app.NewBootstrap(ctx, cfg, app.Options{StorageOnly: true})
	if err != nil {
		return err
	}
	defer b.Close()
	if b.ObjectStore == nil {
		return errors.New("未配置对象存储（storage.object.type）")
	}

	prefix := c.String("prefix")
	if prefix == "" {
		prefix = cfg.Storage.Object.Prefix
	}
	res, err := reconcile.FindOrphans(ctx, b.ObjectStore, b.MetadataStore, reconcile.Options{
		Prefix: prefix,
		Grace:  c.Duration("grace"),
		Delete: c.Bool("delete"),
	}, b.Logger)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, prettyJSON(res))
	if res.Failed > 0 {
		return fmt.Errorf("%d 个对象处理失败", res.Failed)
	}
	return nil
}
