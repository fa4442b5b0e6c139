package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full configuration surface: the collector middleware, the
// demo application and the load-test harness all read from here. Values
// come from config.yaml in the given path, overridden by SQLSMELL_*
// environment variables.
type Config struct {
	ServiceName string `mapstructure:"service_name"`
	Enabled     bool   `mapstructure:"enabled"`

	Log       LogConfig       `mapstructure:"log"`
	Detect    DetectConfig    `mapstructure:"detect"`
	Profiling ProfilingConfig `mapstructure:"profiling"`
	Collector CollectorConfig `mapstructure:"collector"`
	Store     StoreConfig     `mapstructure:"store"`
	Demo      DemoConfig      `mapstructure:"demo"`
	Loadtest  LoadtestConfig  `mapstructure:"loadtest"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"` // empty logs to stdout only
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type DetectConfig struct {
	SlowThresholdMS    int `mapstructure:"slow_threshold_ms"`
	DuplicateThreshold int `mapstructure:"duplicate_threshold"`
	NPlusOneLimit      int `mapstructure:"nplus1_limit"`
	SlowLimit          int `mapstructure:"slow_limit"`
	MaxHeaderValueLen  int `mapstructure:"max_header_value_len"`
	StackDepth         int `mapstructure:"stack_depth"`
	SummaryLen         int `mapstructure:"summary_len"`
}

func (d DetectConfig) SlowThreshold() time.Duration {
	return time.Duration(d.SlowThresholdMS) * time.Millisecond
}

type ProfilingConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	DurationS int    `mapstructure:"duration_s"`
	CooldownS int    `mapstructure:"cooldown_s"`
	Dir       string `mapstructure:"dir"` // empty uses the OS temp dir
}

func (p ProfilingConfig) Duration() time.Duration {
	return time.Duration(p.DurationS) * time.Second
}

func (p ProfilingConfig) Cooldown() time.Duration {
	return time.Duration(p.CooldownS) * time.Second
}

type CollectorConfig struct {
	IntervalS int `mapstructure:"interval_s"`
}

func (c CollectorConfig) Interval() time.Duration {
	return time.Duration(c.IntervalS) * time.Second
}

type StoreConfig struct {
	MaxIssues int `mapstructure:"max_issues"`
	MaxErrors int `mapstructure:"max_errors"`
}

type DemoConfig struct {
	Addr   string `mapstructure:"addr"`
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`

	Authors                int `mapstructure:"authors"`
	BooksPerAuthor         int `mapstructure:"books_per_author"`
	Departments            int `mapstructure:"departments"`
	EmployeesPerDepartment int `mapstructure:"employees_per_department"`
	ProjectsPerDepartment  int `mapstructure:"projects_per_department"`
	TasksPerProject        int `mapstructure:"tasks_per_project"`

	// ExpensiveRows is the row count the expensive example endpoint forces
	// the database to generate, sized to push one query over the slow
	// threshold.
	ExpensiveRows int `mapstructure:"expensive_rows"`
}

type LoadtestConfig struct {
	BaseURL         string `mapstructure:"base_url"`
	Users           int    `mapstructure:"users"`
	DurationS       int    `mapstructure:"duration_s"`
	WaitMinMS       int    `mapstructure:"wait_min_ms"`
	WaitMaxMS       int    `mapstructure:"wait_max_ms"`
	ReportIntervalS int    `mapstructure:"report_interval_s"`
}

func (l LoadtestConfig) Duration() time.Duration {
	return time.Duration(l.DurationS) * time.Second
}

func (l LoadtestConfig) WaitMin() time.Duration {
	return time.Duration(l.WaitMinMS) * time.Millisecond
}

func (l LoadtestConfig) WaitMax() time.Duration {
	return time.Duration(l.WaitMaxMS) * time.Millisecond
}

func (l LoadtestConfig) ReportInterval() time.Duration {
	return time.Duration(l.ReportIntervalS) * time.Second
}

func Load(path string) (config Config, err error) {
	v := viper.New()

	v.SetDefault("service_name", "sqlsmell")
	v.SetDefault("enabled", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 14)

	v.SetDefault("detect.slow_threshold_ms", 500)
	v.SetDefault("detect.duplicate_threshold", 2)
	v.SetDefault("detect.nplus1_limit", 0)
	v.SetDefault("detect.slow_limit", 0)
	v.SetDefault("detect.max_header_value_len", 1024)
	v.SetDefault("detect.stack_depth", 8)
	v.SetDefault("detect.summary_len", 120)

	v.SetDefault("profiling.enabled", false)
	v.SetDefault("profiling.duration_s", 10)
	v.SetDefault("profiling.cooldown_s", 300)
	v.SetDefault("profiling.dir", "")

	v.SetDefault("collector.interval_s", 10)

	v.SetDefault("store.max_issues", 512)
	v.SetDefault("store.max_errors", 256)

	v.SetDefault("demo.addr", ":8000")
	v.SetDefault("demo.driver", "sqlite3")
	v.SetDefault("demo.dsn", "file:sqlsmell.db?cache=shared&_foreign_keys=1")
	v.SetDefault("demo.authors", 50)
	v.SetDefault("demo.books_per_author", 20)
	v.SetDefault("demo.departments", 5)
	v.SetDefault("demo.employees_per_department", 20)
	v.SetDefault("demo.projects_per_department", 4)
	v.SetDefault("demo.tasks_per_project", 10)
	v.SetDefault("demo.expensive_rows", 2000000)

	v.SetDefault("loadtest.base_url", "http://localhost:8000")
	v.SetDefault("loadtest.users", 10)
	v.SetDefault("loadtest.duration_s", 60)
	v.SetDefault("loadtest.wait_min_ms", 1000)
	v.SetDefault("loadtest.wait_max_ms", 5000)
	v.SetDefault("loadtest.report_interval_s", 10)

	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("sqlsmell")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err = v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return
		}
		err = nil
	}

	err = v.Unmarshal(&config)
	return
}
