package main

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/seedstore_backend/models"
	"github.com/mmdatafocus/seedstore_backend/utils"
)

/* master data and auth */

type tokenRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// tokenHandler issues a JWT for a registered, active officer.
func tokenHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req tokenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))
		user, err := models.AuthenticateUser(c.Request.Context(), email, req.Password)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		token, err := utils.JwtGenerate(user.ID, user.Name, string(user.Role))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
	}
}

func createUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		role, _ := utils.GetOfficerRoleFromContext(c.Request.Context())
		if !models.UserRole(role).CanApproveDocuments() {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		var input models.NewUser
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		user, err := models.CreateUser(c.Request.Context(), input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, user)
	}
}

func getUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		user, err := models.GetUser(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

func updateUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		role, _ := utils.GetOfficerRoleFromContext(c.Request.Context())
		if !models.UserRole(role).CanApproveDocuments() {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var input models.NewUser
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		user, err := models.UpdateUser(c.Request.Context(), id, input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

type toggleActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

func toggleUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		role, _ := utils.GetOfficerRoleFromContext(c.Request.Context())
		if !models.UserRole(role).CanApproveDocuments() {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req toggleActiveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		user, err := models.ToggleActiveUser(c.Request.Context(), id, *req.IsActive)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

func listUsersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		result, err := models.ListUsers(c.Request.Context(), bindPage(c))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func createWarehouseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		var input models.NewWarehouse
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		warehouse, err := models.CreateWarehouse(c.Request.Context(), input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, warehouse)
	}
}

func getWarehouseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		warehouse, err := models.GetWarehouse(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, warehouse)
	}
}

func updateWarehouseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var input models.NewWarehouse
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		warehouse, err := models.UpdateWarehouse(c.Request.Context(), id, input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, warehouse)
	}
}

func toggleWarehouseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req toggleActiveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		warehouse, err := models.ToggleActiveWarehouse(c.Request.Context(), id, *req.IsActive)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, warehouse)
	}
}

func listWarehousesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		result, err := models.ListWarehouses(c.Request.Context(), bindPage(c))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func createSeedClassHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		var input models.NewSeedClass
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		seedClass, err := models.CreateSeedClass(c.Request.Context(), input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, seedClass)
	}
}

func updateSeedClassHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var input models.NewSeedClass
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		seedClass, err := models.UpdateSeedClass(c.Request.Context(), id, input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, seedClass)
	}
}

func listSeedClassesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		result, err := models.ListSeedClasses(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func createSeedProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		var input models.NewSeedProduct
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		product, err := models.CreateSeedProduct(c.Request.Context(), input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, product)
	}
}

func getSeedProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		product, err := models.GetSeedProduct(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

func updateSeedProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var input models.NewSeedProduct
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		product, err := models.UpdateSeedProduct(c.Request.Context(), id, input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

func toggleSeedProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req toggleActiveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		product, err := models.ToggleActiveSeedProduct(c.Request.Context(), id, *req.IsActive)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

func listSeedProductsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		result, err := models.ListSeedProducts(c.Request.Context(), bindPage(c), c.Query("search"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// bootstrapAdminHandler seeds the first admin user when the users table is
// empty. Gated by BOOTSTRAP_TOKEN so it is unusable unless explicitly set.
func bootstrapAdminHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := strings.TrimSpace(os.Getenv("BOOTSTRAP_TOKEN"))
		if secret == "" || c.GetHeader("X-Bootstrap-Token") != secret {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		count, err := utils.ResourceCountWhere[models.User](c.Request.Context(), "1 = 1")
		if err != nil {
			writeError(c, err)
			return
		}
		if count > 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "users already exist"})
			return
		}

		var input models.NewUser
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		input.Role = models.RoleAdmin
		user, err := models.CreateUser(c.Request.Context(), input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, user)
	}
}
