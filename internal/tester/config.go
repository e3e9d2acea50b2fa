package tester

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"gopkg.in/yaml.v3"

	"github.com/rxtech-lab/mtsim/internal/tester/commission"
	"github.com/rxtech-lab/mtsim/internal/types"
	"github.com/rxtech-lab/mtsim/pkg/errors"
)

// DateLayout is the date format tester configs use for the test period.
const DateLayout = "02.01.2006 15:04"

// Modelling selects how the replay generates ticks.
type Modelling string

const (
	// ModellingRealTicks replays every stored tick.
	ModellingRealTicks Modelling = "real_ticks"
	// ModellingNewBar replays one synthetic tick per bar, priced at the
	// bar open.
	ModellingNewBar Modelling = "new_bar"
)

var AllModelling = []any{
	ModellingRealTicks,
	ModellingNewBar,
}

// Config describes one tester run.
type Config struct {
	BotName   string          `yaml:"bot_name" json:"bot_name" validate:"required" jsonschema:"title=Bot Name,description=Name of the strategy run; reports are grouped under it"`
	Symbols   []string        `yaml:"symbols" json:"symbols" validate:"required,min=1,dive,required" jsonschema:"title=Symbols,description=Symbols to replay"`
	Timeframe types.Timeframe `yaml:"timeframe" json:"timeframe" jsonschema:"title=Timeframe,description=Chart period for new_bar modelling and rate requests"`
	StartDate time.Time       `yaml:"start_date" json:"start_date" validate:"required" jsonschema:"title=Start Date,description=Start of the test period in DD.MM.YYYY HH:MM"`
	EndDate   time.Time       `yaml:"end_date" json:"end_date" validate:"required" jsonschema:"title=End Date,description=End of the test period in DD.MM.YYYY HH:MM"`
	Modelling Modelling       `yaml:"modelling" json:"modelling" validate:"required" jsonschema:"title=Modelling,description=Tick generation mode"`
	Deposit   float64         `yaml:"deposit" json:"deposit" validate:"required,gt=0" jsonschema:"title=Deposit,description=Starting balance in the account currency,minimum=0"`
	Leverage  int64           `yaml:"leverage" json:"leverage" validate:"required,gt=0" jsonschema:"title=Leverage,description=Account leverage in 1:N form"`

	DataDir    optional.Option[string]               `yaml:"data_dir" json:"data_dir" jsonschema:"title=Data Directory,description=History root the replay reads from"`
	ReportDir  optional.Option[string]               `yaml:"report_dir" json:"report_dir" jsonschema:"title=Report Directory,description=Directory test reports are written to"`
	Commission optional.Option[commission.ModelName] `yaml:"commission" json:"commission" jsonschema:"title=Commission,description=Commission model applied to deals"`
	Login      optional.Option[int64]                `yaml:"login" json:"login" jsonschema:"title=Login,description=Simulated account login"`
	Server     optional.Option[string]               `yaml:"server" json:"server" jsonschema:"title=Server,description=Simulated server name"`
	Company    optional.Option[string]               `yaml:"company" json:"company" jsonschema:"title=Company,description=Simulated broker name"`
	Currency   optional.Option[string]               `yaml:"currency" json:"currency" jsonschema:"title=Currency,description=Account currency"`
}

// configKeys lists every key a tester config may carry. Anything else is a
// typo and rejected outright rather than silently ignored.
var configKeys = map[string]struct{}{
	"bot_name":   {},
	"symbols":    {},
	"timeframe":  {},
	"start_date": {},
	"end_date":   {},
	"modelling":  {},
	"deposit":    {},
	"leverage":   {},
	"data_dir":   {},
	"report_dir": {},
	"commission": {},
	"login":      {},
	"server":     {},
	"company":    {},
	"currency":   {},
}

// UnmarshalYAML implements custom unmarshaling for Config. Dates, leverage,
// timeframe and modelling arrive as strings and are decoded into their typed
// forms here; unknown keys fail the whole document.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	type rawConfig struct {
		BotName    string   `yaml:"bot_name"`
		Symbols    []string `yaml:"symbols"`
		Timeframe  string   `yaml:"timeframe"`
		StartDate  string   `yaml:"start_date"`
		EndDate    string   `yaml:"end_date"`
		Modelling  string   `yaml:"modelling"`
		Deposit    float64  `yaml:"deposit"`
		Leverage   string   `yaml:"leverage"`
		DataDir    *string  `yaml:"data_dir"`
		ReportDir  *string  `yaml:"report_dir"`
		Commission *string  `yaml:"commission"`
		Login      *int64   `yaml:"login"`
		Server     *string  `yaml:"server"`
		Company    *string  `yaml:"company"`
		Currency   *string  `yaml:"currency"`
	}

	if value.Kind != yaml.MappingNode {
		return errors.New(errors.ErrCodeTesterConfigError, "tester config must be a mapping")
	}

	for i := 0; i+1 < len(value.Content); i += 2 {
		key := value.Content[i].Value
		if _, ok := configKeys[key]; !ok {
			return errors.Newf(errors.ErrCodeUnknownConfigKey, "unknown tester config key %q", key)
		}
	}

	var raw rawConfig
	if err := value.Decode(&raw); err != nil {
		return errors.Wrap(errors.ErrCodeTesterConfigError, "failed to decode tester config", err)
	}

	c.BotName = raw.BotName
	c.Symbols = raw.Symbols

	if raw.Timeframe != "" {
		tf, err := types.ParseTimeframe(strings.ToUpper(raw.Timeframe))
		if err != nil {
			return err
		}

		c.Timeframe = tf
	}

	if raw.StartDate != "" {
		start, err := time.Parse(DateLayout, raw.StartDate)
		if err != nil {
			return errors.Newf(errors.ErrCodeInvalidDateRange, "start_date must be in DD.MM.YYYY HH:MM form, got %q", raw.StartDate)
		}

		c.StartDate = start.UTC()
	}

	if raw.EndDate != "" {
		end, err := time.Parse(DateLayout, raw.EndDate)
		if err != nil {
			return errors.Newf(errors.ErrCodeInvalidDateRange, "end_date must be in DD.MM.YYYY HH:MM form, got %q", raw.EndDate)
		}

		c.EndDate = end.UTC()
	}

	if raw.Modelling != "" {
		c.Modelling = Modelling(strings.ToLower(raw.Modelling))
	}

	c.Deposit = raw.Deposit

	if raw.Leverage != "" {
		leverage, err := ParseLeverage(raw.Leverage)
		if err != nil {
			return err
		}

		c.Leverage = leverage
	}

	if raw.DataDir != nil {
		c.DataDir = optional.Some(*raw.DataDir)
	}

	if raw.ReportDir != nil {
		c.ReportDir = optional.Some(*raw.ReportDir)
	}

	if raw.Commission != nil {
		c.Commission = optional.Some(commission.ModelName(strings.ToLower(*raw.Commission)))
	}

	if raw.Login != nil {
		c.Login = optional.Some(*raw.Login)
	}

	if raw.Server != nil {
		c.Server = optional.Some(*raw.Server)
	}

	if raw.Company != nil {
		c.Company = optional.Some(*raw.Company)
	}

	if raw.Currency != nil {
		c.Currency = optional.Some(*raw.Currency)
	}

	return nil
}

// ParseLeverage converts "1:100" to 100.
func ParseLeverage(leverage string) (int64, error) {
	left, right, found := strings.Cut(leverage, ":")
	if !found || left != "1" {
		return 0, errors.Newf(errors.ErrCodeInvalidLeverage, "leverage must be in 1:N form, got %q", leverage)
	}

	value, err := strconv.ParseInt(right, 10, 64)
	if err != nil || value <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidLeverage, "leverage must be in 1:N form with N > 0, got %q", leverage)
	}

	return value, nil
}

// ParseConfig decodes and validates a YAML tester config.
func ParseConfig(data []byte) (Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		if errors.GetCode(err) != errors.ErrCodeUnknown {
			return Config{}, err
		}

		return Config{}, errors.Wrap(errors.ErrCodeTesterConfigError, "failed to parse tester config", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

// Validate checks the semantic constraints of the config.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeTesterConfigError, "invalid tester config", err)
	}

	if !c.Timeframe.Valid() {
		return errors.Newf(errors.ErrCodeInvalidTimeframe, "invalid timeframe %d", int(c.Timeframe))
	}

	switch c.Modelling {
	case ModellingRealTicks, ModellingNewBar:
	default:
		return errors.Newf(errors.ErrCodeInvalidModelling, "invalid modelling mode %q", c.Modelling)
	}

	if !c.StartDate.Before(c.EndDate) {
		return errors.Newf(errors.ErrCodeInvalidDateRange, "start_date %s must be earlier than end_date %s",
			c.StartDate.Format(DateLayout), c.EndDate.Format(DateLayout))
	}

	if c.Commission.IsSome() {
		switch c.Commission.Unwrap() {
		case commission.ModelFlat, commission.ModelZero:
		default:
			return errors.Newf(errors.ErrCodeTesterConfigError, "unknown commission model %q", c.Commission.Unwrap())
		}
	}

	return nil
}

// GenerateSchema generates a JSON schema for the tester config.
func (c *Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if strings.HasPrefix(t.String(), "optional.Option[") {
				return optionSchema(t)
			}

			switch t.String() {
			case "time.Time":
				return &jsonschema.Schema{
					Type:    "string",
					Pattern: `^\d{2}\.\d{2}\.\d{4} \d{2}:\d{2}$`,
				}
			case "types.Timeframe":
				return &jsonschema.Schema{
					Type: "string",
					Enum: timeframeEnum(),
				}
			case "tester.Modelling":
				return &jsonschema.Schema{
					Type: "string",
					Enum: AllModelling,
				}
			default:
				return nil
			}
		},
	}

	schema := reflector.Reflect(c)

	schema.Title = "tester-config"
	schema.Description = "Configuration schema for the strategy tester"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates a JSON schema string for the tester config.
func (c *Config) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

func optionSchema(t reflect.Type) *jsonschema.Schema {
	switch t.String() {
	case "optional.Option[int64]":
		return &jsonschema.Schema{Type: "integer"}
	case "optional.Option[github.com/rxtech-lab/mtsim/internal/tester/commission.ModelName]":
		return &jsonschema.Schema{
			Type: "string",
			Enum: commission.AllModels,
		}
	default:
		return &jsonschema.Schema{Type: "string"}
	}
}

func timeframeEnum() []any {
	values := make([]any, 0, len(types.TimeframeNames))
	for _, name := range types.TimeframeNames {
		values = append(values, name)
	}

	return values
}

// DefaultConfig returns a Config with the simulator defaults filled in.
func DefaultConfig() Config {
	return Config{
		BotName:    "",
		Symbols:    nil,
		Timeframe:  types.TimeframeH1,
		StartDate:  time.Time{},
		EndDate:    time.Time{},
		Modelling:  ModellingRealTicks,
		Deposit:    0,
		Leverage:   100,
		DataDir:    optional.None[string](),
		ReportDir:  optional.None[string](),
		Commission: optional.None[commission.ModelName](),
		Login:      optional.None[int64](),
		Server:     optional.None[string](),
		Company:    optional.None[string](),
		Currency:   optional.None[string](),
	}
}
