// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

//go:build integration

package integration_test

import (
	"sync"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/gatehouse/gatehouse/internal/auth"
)

var _ = Describe("Account lifecycle", func() {
	BeforeEach(func() {
		truncateUsers()
	})

	Describe("Registration", func() {
		It("creates an account with a hashed password", func() {
			user, err := env.Service.Register(env.ctx, "alice@example.com", "s3cret")
			Expect(err).NotTo(HaveOccurred())
			Expect(user.Email).To(Equal("alice@example.com"))
			Expect(user.PasswordHash).To(HavePrefix("$argon2id$"))

			stored, err := env.Users.FindOne(env.ctx, auth.Filter{auth.FieldEmail: "alice@example.com"})
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.ID).To(Equal(user.ID))
			Expect(stored.SessionID).To(BeNil())
			Expect(stored.ResetToken).To(BeNil())
		})

		It("rejects a duplicate email", func() {
			_, err := env.Service.Register(env.ctx, "alice@example.com", "s3cret")
			Expect(err).NotTo(HaveOccurred())

			_, err = env.Service.Register(env.ctx, "alice@example.com", "other")
			Expect(err).To(MatchError(auth.ErrAlreadyExists))
		})

		It("admits exactly one of many concurrent duplicates", func() {
			const workers = 8
			var wg sync.WaitGroup
			errs := make([]error, workers)
			for i := range workers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer GinkgoRecover()
					_, errs[i] = env.Service.Register(env.ctx, "race@example.com", "s3cret")
				}()
			}
			wg.Wait()

			succeeded := 0
			for _, err := range errs {
				if err == nil {
					succeeded++
				} else {
					Expect(err).To(MatchError(auth.ErrAlreadyExists))
				}
			}
			Expect(succeeded).To(Equal(1))
		})
	})

	Describe("Login", func() {
		BeforeEach(func() {
			_, err := env.Service.Register(env.ctx, "alice@example.com", "s3cret")
			Expect(err).NotTo(HaveOccurred())
		})

		It("accepts valid credentials", func() {
			ok, err := env.Service.Login(env.ctx, "alice@example.com", "s3cret")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
		})

		It("rejects a wrong password", func() {
			ok, err := env.Service.Login(env.ctx, "alice@example.com", "wrong")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("rejects an unknown email", func() {
			ok, err := env.Service.Login(env.ctx, "nobody@example.com", "s3cret")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})
	})

	Describe("Sessions", func() {
		BeforeEach(func() {
			_, err := env.Service.Register(env.ctx, "alice@example.com", "s3cret")
			Expect(err).NotTo(HaveOccurred())
		})

		It("issues and resolves a session", func() {
			token, err := env.Service.CreateSession(env.ctx, "alice@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(token).NotTo(BeEmpty())

			user, err := env.Service.ResolveSession(env.ctx, token)
			Expect(err).NotTo(HaveOccurred())
			Expect(user.Email).To(Equal("alice@example.com"))
		})

		It("keeps at most one session live per account", func() {
			first, err := env.Service.CreateSession(env.ctx, "alice@example.com")
			Expect(err).NotTo(HaveOccurred())
			second, err := env.Service.CreateSession(env.ctx, "alice@example.com")
			Expect(err).NotTo(HaveOccurred())

			_, err = env.Service.ResolveSession(env.ctx, first)
			Expect(err).To(MatchError(auth.ErrNotFound))

			user, err := env.Service.ResolveSession(env.ctx, second)
			Expect(err).NotTo(HaveOccurred())
			Expect(user.Email).To(Equal("alice@example.com"))
		})

		It("destroys sessions idempotently", func() {
			token, err := env.Service.CreateSession(env.ctx, "alice@example.com")
			Expect(err).NotTo(HaveOccurred())

			user, err := env.Service.ResolveSession(env.ctx, token)
			Expect(err).NotTo(HaveOccurred())

			Expect(env.Service.DestroySession(env.ctx, user.ID)).To(Succeed())
			Expect(env.Service.DestroySession(env.ctx, user.ID)).To(Succeed())

			_, err = env.Service.ResolveSession(env.ctx, token)
			Expect(err).To(MatchError(auth.ErrNotFound))
		})
	})

	Describe("Password reset", func() {
		BeforeEach(func() {
			_, err := env.Service.Register(env.ctx, "alice@example.com", "oldpassword")
			Expect(err).NotTo(HaveOccurred())
		})

		It("replaces the password through a reset token", func() {
			token, err := env.Service.RequestPasswordReset(env.ctx, "alice@example.com")
			Expect(err).NotTo(HaveOccurred())

			Expect(env.Service.ConsumePasswordReset(env.ctx, token, "newpassword")).To(Succeed())

			ok, err := env.Service.Login(env.ctx, "alice@example.com", "oldpassword")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())

			ok, err = env.Service.Login(env.ctx, "alice@example.com", "newpassword")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
		})

		It("rejects a consumed token on reuse", func() {
			token, err := env.Service.RequestPasswordReset(env.ctx, "alice@example.com")
			Expect(err).NotTo(HaveOccurred())

			Expect(env.Service.ConsumePasswordReset(env.ctx, token, "first")).To(Succeed())
			err = env.Service.ConsumePasswordReset(env.ctx, token, "second")
			Expect(err).To(MatchError(auth.ErrInvalidToken))
		})

		It("supersedes an earlier token with a later request", func() {
			first, err := env.Service.RequestPasswordReset(env.ctx, "alice@example.com")
			Expect(err).NotTo(HaveOccurred())
			second, err := env.Service.RequestPasswordReset(env.ctx, "alice@example.com")
			Expect(err).NotTo(HaveOccurred())

			err = env.Service.ConsumePasswordReset(env.ctx, first, "newpassword")
			Expect(err).To(MatchError(auth.ErrInvalidToken))
			Expect(env.Service.ConsumePasswordReset(env.ctx, second, "newpassword")).To(Succeed())
		})

		It("refuses a reset request for an unknown email", func() {
			_, err := env.Service.RequestPasswordReset(env.ctx, "nobody@example.com")
			Expect(err).To(MatchError(auth.ErrUserNotFound))
		})
	})
})
