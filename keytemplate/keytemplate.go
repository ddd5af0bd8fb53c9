// Package keytemplate evaluates object key templates such as "builds/{{ .OS }}/{{ .Timestamp }}.tar.zst".
package keytemplate

import (
	"bytes"
	"fmt"
	"runtime"
	"strings"
	"text/template"
	"time"
	"unicode/utf8"

	"github.com/bitrise-io/go-s3stream/internal/pathset"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
)

// MaxKeyLength is the longest object key S3 accepts, in bytes.
const MaxKeyLength = 1024

const (
	timestampLayout = "20060102T150405Z"
	dateLayout      = "2006-01-02"
)

type Model struct {
	envRepo    env.Repository
	logger     log.Logger
	os         string
	arch       string
	now        func() time.Time
	resolver   pathset.Resolver
	workingDir string
}

type templateInventory struct {
	OS         string
	Arch       string
	Timestamp  string
	Date       string
	Branch     string
	CommitHash string
}

func NewModel(envRepo env.Repository, logger log.Logger) Model {
	return Model{
		envRepo:  envRepo,
		logger:   logger,
		os:       runtime.GOOS,
		arch:     runtime.GOARCH,
		now:      time.Now,
		resolver: pathset.NewResolver(pathutil.NewPathModifier(), pathutil.NewPathChecker()),
	}
}

// Evaluate returns the object key from a key template
func (m Model) Evaluate(key string) (string, error) {
	funcMap := template.FuncMap{
		"getenv":   m.getEnvVar,
		"checksum": m.checksum,
	}

	tmpl, err := template.New("").Funcs(funcMap).Parse(key)
	if err != nil {
		return "", fmt.Errorf("invalid template: %w", err)
	}

	now := m.now().UTC()
	inventory := templateInventory{
		OS:         m.os,
		Arch:       m.arch,
		Timestamp:  now.Format(timestampLayout),
		Date:       now.Format(dateLayout),
		Branch:     m.getEnvVar("BITRISE_GIT_BRANCH"),
		CommitHash: m.commitHash(),
	}
	m.validateInventory(key, inventory)

	resultBuffer := bytes.Buffer{}
	if err := tmpl.Execute(&resultBuffer, inventory); err != nil {
		return "", err
	}

	result := resultBuffer.String()
	if err := ValidateKey(result); err != nil {
		return "", err
	}
	return result, nil
}

// ValidateKey checks that key can be used as an object key.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("key must not be empty")
	}
	if len(key) > MaxKeyLength {
		return fmt.Errorf("key is %d bytes long, the limit is %d", len(key), MaxKeyLength)
	}
	if !utf8.ValidString(key) {
		return fmt.Errorf("key is not valid UTF-8")
	}
	if strings.HasPrefix(key, "/") {
		return fmt.Errorf("key must not start with /: %s", key)
	}
	return nil
}

func (m Model) getEnvVar(key string) string {
	return m.envRepo.Get(key)
}

func (m Model) commitHash() string {
	if hash := m.getEnvVar("BITRISE_GIT_COMMIT"); hash != "" {
		return hash
	}
	return m.getEnvVar("GIT_CLONE_COMMIT_HASH")
}

func (m Model) validateInventory(key string, inventory templateInventory) {
	m.warnIfEmpty(key, "Branch", inventory.Branch)
	m.warnIfEmpty(key, "CommitHash", inventory.CommitHash)
}

func (m Model) warnIfEmpty(key, name, value string) {
	if value == "" && strings.Contains(key, "."+name) {
		m.logger.Warnf("Template variable .%s is not defined", name)
	}
}
