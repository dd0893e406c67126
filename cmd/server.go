package cmd

import (
	"context"
	"errors"
	"fmt"
	log2 "log"
	"net/http"
	"os"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/altheris/mysql-data-apis/config"
	"github.com/altheris/mysql-data-apis/endpoint"
	"github.com/altheris/mysql-data-apis/log"
)

const defaultAPIPath = "/v1"

// Environment variables prefixed with "MYSQL_API_" can override settings e.g. "MYSQL_API_HOST"
const envVarPrefix = "mysql_api"

var cfgFile string
var logger log.Logger
var cfg *endpoint.DataEndpointConfig

var serverCmd = &cobra.Command{
	Use:   os.Args[0] + " --host [HOST] --database [DATABASE] [OPTIONS]",
	Short: "Safe data mutation and synthesis endpoints for MySQL",
	Args: func(cmd *cobra.Command, args []string) error {
		if viper.GetString("host") == "" {
			return errors.New("host is required")
		}
		if viper.GetString("database") == "" {
			return errors.New("database is required")
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		dataEndpoint := createEndpoint()

		router := createRouter()
		addRoutes(router, dataEndpoint)
		listenAndServe(router, viper.GetInt("port"))
	},
}

// Execute starts the API endpoint
func Execute() {
	zapLogger, err := zap.NewProduction()
	if err != nil {
		log2.Fatalf("unable to initialize logger: %v", err)
	}

	logger = log.NewZapLogger(zapLogger)

	flags := serverCmd.PersistentFlags()

	flags.StringVarP(&cfgFile, "config", "c", "", "config file")
	flags.StringP("host", "t", "", "host for connecting to the database")
	flags.Int("db-port", 3306, "port for connecting to the database")
	flags.StringP("username", "u", "", "connect with database username")
	flags.StringP("password", "p", "", "database user's password")
	flags.StringP("database", "d", "", "database (schema) to operate on")

	flags.Bool("request-logging", false, "enable request logging")
	flags.StringSlice("operations", []string{
		"DataInsert",
		"DataUpdate",
		"DataDelete",
		"DataSelect",
		"SchemaDescribe",
	}, "list of allowed operations. options: DataInsert,DataUpdate,DataDelete,DataSelect,SchemaDescribe")
	flags.Int("max-insert-records", config.DefaultMaxInsertRecords, "maximum records a single insert request may generate")
	flags.Int64("max-update-records", config.DefaultMaxUpdateRecords, "maximum affected-record ceiling for update requests")
	flags.Int64("max-delete-records", config.DefaultMaxDeleteRecords, "maximum affected-record ceiling for delete requests")
	flags.Int("select-row-limit", endpoint.DefaultSelectRowLimit, "row limit appended to unbounded SELECT queries")
	flags.String("access-control-allow-origin", "", "Access-Control-Allow-Origin header value")

	flags.String("api-path", defaultAPIPath, "API root path")
	flags.Int("port", 8080, "API endpoint port")

	flags.VisitAll(func(flag *pflag.Flag) {
		if flag.Name != "config" {
			viper.BindPFlag(flag.Name, flags.Lookup(flag.Name))
		}
	})

	cobra.OnInitialize(initialize)

	viper.SetEnvPrefix(envVarPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := serverCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func createEndpoint() *endpoint.DataEndpoint {
	cfg = endpoint.NewEndpointConfigWithLogger(logger, viper.GetString("host"))

	supportedOps, err := config.Ops(viper.GetStringSlice("operations")...)
	if err != nil {
		logger.Fatal("invalid supported operation",
			"operations", viper.GetStringSlice("operations"),
			"error", err)
	}

	cfg.
		WithDbPort(viper.GetInt("db-port")).
		WithDbUsername(viper.GetString("username")).
		WithDbPassword(viper.GetString("password")).
		WithDbName(viper.GetString("database")).
		WithSupportedOperations(supportedOps).
		WithSelectRowLimit(viper.GetInt("select-row-limit")).
		WithLimits(config.Limits{
			MaxInsertRecords: viper.GetInt("max-insert-records"),
			MaxUpdateRecords: viper.GetInt64("max-update-records"),
			MaxDeleteRecords: viper.GetInt64("max-delete-records"),
		})

	dataEndpoint, err := cfg.NewEndpoint(context.Background())
	if err != nil {
		logger.Fatal("unable to create new endpoint",
			"error", err)
	}

	return dataEndpoint
}

func addRoutes(router *httprouter.Router, dataEndpoint *endpoint.DataEndpoint) {
	for _, route := range dataEndpoint.Routes(viper.GetString("api-path")) {
		router.Handler(route.Method, route.Pattern, route.Handler)
	}
}

func maybeAddRequestLogging(handler http.Handler) http.Handler {
	if viper.GetBool("request-logging") {
		handler = log.NewLoggingHandler(handler, logger)
	}
	return handler
}

func maybeAddCORS(handler http.Handler) http.Handler {
	if value := viper.GetString("access-control-allow-origin"); value != "" {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", value)
			handler.ServeHTTP(w, r)
		})
	}
	return handler
}

func initialize() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err == nil {
			logger.Info("using config file",
				"file", viper.ConfigFileUsed())
		}
	}
}

func createRouter() *httprouter.Router {
	router := httprouter.New()
	if value := viper.GetString("access-control-allow-origin"); value != "" {
		router.GlobalOPTIONS = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Access-Control-Request-Method") != "" {
				header := w.Header()
				header.Set("Access-Control-Allow-Method", r.Header.Get("Access-Control-Request-Method"))
				header.Set("Access-Control-Allow-Headers", r.Header.Get("Access-Control-Request-Headers"))
				header.Set("Access-Control-Allow-Origin", value)
			}

			w.WriteHeader(http.StatusNoContent)
		})
	}
	return router
}

func listenAndServe(handler http.Handler, port int) {
	logger.Info("server listening",
		"port", port)
	handler = maybeAddCORS(maybeAddRequestLogging(handler))
	err := http.ListenAndServe(fmt.Sprintf(":%d", port), handler)
	if err != nil {
		logger.Fatal("unable to start server",
			"port", port,
			"error", err)
	}
}
