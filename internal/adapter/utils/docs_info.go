// @title           DocWatch API
// @version         1.0
// @description     Uploads documents to the processing backend and tracks their progress until a terminal state.
// @termsOfService  http://swagger.io/terms/

// @contact.name    API Support
// @contact.url
// @contact.email   ank.github@gmail.com

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https

// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package utils

//run redis
//docker run -p 6379:6379 -d redis

//swagger init
//swag init -g cmd/docwatch/main.go --parseDependency --parseInternal --dir ./ --output ./cmd/docwatch/docs
