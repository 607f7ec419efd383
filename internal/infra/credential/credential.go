package credential

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/term"
)

const (
	EnvEmail    = "CRAIGSLIST_EMAIL"
	EnvPassword = "CRAIGSLIST_PASSWORD"
)

var ErrMissing = errors.New("credentials are incomplete")

// Credentials 账户登录信息
type Credentials struct {
	Email    string
	Password string
}

func (c Credentials) Complete() bool {
	return c.Email != "" && c.Password != ""
}

// String 不输出密码
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{Email: %q, Password: <redacted>}", c.Email)
}

// Prompter 交互式读取缺失的登录信息
type Prompter interface {
	Prompt(label string, secret bool) (string, error)
}

// Resolver 依次从命令行参数, 环境变量(.env), 交互输入中获取登录信息
type Resolver struct {
	// EnvFiles 需要加载的 .env 文件, 不存在的文件会被忽略
	EnvFiles []string
	Getenv   func(string) string
	Prompter Prompter
}

func NewResolver(prompter Prompter, envFiles ...string) *Resolver {
	return &Resolver{
		EnvFiles: envFiles,
		Getenv:   os.Getenv,
		Prompter: prompter,
	}
}

func (r *Resolver) Resolve(flags Credentials) (Credentials, error) {
	creds := flags
	if creds.Complete() {
		return creds, nil
	}

	if err := r.loadEnvFiles(); err != nil {
		return Credentials{}, err
	}
	getenv := r.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if creds.Email == "" {
		creds.Email = strings.TrimSpace(getenv(EnvEmail))
	}
	if creds.Password == "" {
		creds.Password = getenv(EnvPassword)
	}
	if creds.Complete() {
		return creds, nil
	}

	if r.Prompter == nil {
		return Credentials{}, ErrMissing
	}
	var err error
	if creds.Email == "" {
		if creds.Email, err = r.Prompter.Prompt("Email: ", false); err != nil {
			return Credentials{}, fmt.Errorf("读取邮箱失败: %w", err)
		}
		creds.Email = strings.TrimSpace(creds.Email)
	}
	if creds.Password == "" {
		if creds.Password, err = r.Prompter.Prompt("Password: ", true); err != nil {
			return Credentials{}, fmt.Errorf("读取密码失败: %w", err)
		}
	}
	if !creds.Complete() {
		return Credentials{}, ErrMissing
	}
	return creds, nil
}

func (r *Resolver) loadEnvFiles() error {
	var files []string
	for _, f := range r.EnvFiles {
		if _, err := os.Stat(f); err == nil {
			files = append(files, f)
		}
	}
	if len(files) == 0 {
		return nil
	}
	// godotenv.Load 不会覆盖已经存在的环境变量
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("加载环境变量文件失败: %w", err)
	}
	return nil
}

// TerminalPrompter 从终端读取, 密码输入不回显
type TerminalPrompter struct {
	In  *os.File
	Out io.Writer

	reader *bufio.Reader
}

func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{In: os.Stdin, Out: os.Stderr}
}

func (p *TerminalPrompter) Prompt(label string, secret bool) (string, error) {
	fmt.Fprint(p.Out, label)
	fd := int(p.In.Fd())
	if secret && term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(p.Out)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	if p.reader == nil {
		p.reader = bufio.NewReader(p.In)
	}
	line, err := p.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
